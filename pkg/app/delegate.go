// Package app implements the update delegate: it translates high-level item
// intents (consume, spoil, restore, delete, count changes, presence flips)
// into store mutations, applying business policy, debounced count writes,
// and the single-slot undo buffer.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/store"
)

// ErrNotReal marks a contract violation: the caller asked for a persistence
// operation on an item that was never eligible for persistence.
var ErrNotReal = errors.New("app: item is not real")

// DefaultDebounce is how long rapid count taps are batched before one write
// goes to the store.
const DefaultDebounce = 400 * time.Millisecond

// Undoable is the single-slot buffer holding the most recently removed or
// archived item, pending confirmation or restoration.
type Undoable struct {
	Item        item.Item
	CanQuickAdd bool
}

// Delegate converts one intent into zero-or-one store mutation. Mutations on
// items that are not yet real skip the store and are folded into synthetic
// optimistic events instead, so unpersisted items drive the same refresh path
// as persisted ones.
type Delegate struct {
	Persistence store.Persistence
	Bus         *bus.Bus

	// ZeroCountConsumes reports the current zero-count policy. Read at
	// mutation time so preference changes apply without rebuilding the
	// delegate. Nil means disabled.
	ZeroCountConsumes func() bool

	// OnError receives failures from deferred writes (debounced count
	// flushes), which happen after the originating call returned. May be nil.
	OnError func(err error)

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	mu      sync.Mutex
	undo    *Undoable
	pending map[string]item.Item
	timers  map[string]*time.Timer
}

// NewDelegate builds a delegate over the given persistence and event bus.
func NewDelegate(p store.Persistence, b *bus.Bus) *Delegate {
	return &Delegate{
		Persistence: p,
		Bus:         b,
		pending:     make(map[string]item.Item),
		timers:      make(map[string]*time.Timer),
	}
}

// Add commits a new or edited item: persisted once real, optimistic-only
// while it is still a placeholder.
func (d *Delegate) Add(ctx context.Context, it item.Item) (item.Item, error) {
	return d.commit(ctx, it)
}

// Consume marks the item consumed and offers quick re-add through the undo
// slot.
func (d *Delegate) Consume(ctx context.Context, it item.Item) (item.Item, error) {
	it.Consumed = true
	it, err := d.commit(ctx, it)
	d.setUndo(&Undoable{Item: it, CanQuickAdd: true})
	return it, err
}

// Spoil marks the item spoiled, with the same undo handling as Consume.
func (d *Delegate) Spoil(ctx context.Context, it item.Item) (item.Item, error) {
	it.Spoiled = true
	it, err := d.commit(ctx, it)
	d.setUndo(&Undoable{Item: it, CanQuickAdd: true})
	return it, err
}

// Restore clears the archival flags. It does not touch the undo slot.
func (d *Delegate) Restore(ctx context.Context, it item.Item) (item.Item, error) {
	it.Consumed = false
	it.Spoiled = false
	return d.commit(ctx, it)
}

// Delete removes a persisted item and populates the undo slot. Deleting an
// item that is not real is a caller bug.
func (d *Delegate) Delete(ctx context.Context, it item.Item) error {
	if !it.Real() {
		return fmt.Errorf("delete %q: %w", it.ID, ErrNotReal)
	}
	d.dropPending(it.ID)
	d.Bus.Publish(bus.Event{Op: bus.OpDelete, Item: &it, OfferUndo: true})
	d.setUndo(&Undoable{Item: it})
	if _, err := d.Persistence.DeleteItem(ctx, it, true); err != nil {
		return fmt.Errorf("app: delete item: %w", err)
	}
	return nil
}

// IncreaseCount bumps the count by one. The write is debounced.
func (d *Delegate) IncreaseCount(ctx context.Context, it item.Item) (item.Item, error) {
	it.Count++
	return d.commitDebounced(ctx, it)
}

// DecreaseCount lowers the count by one, flooring at one. A computed count
// of zero-or-less under Have presence with the zero-count policy enabled
// routes the item through Consume instead of persisting a zero count.
func (d *Delegate) DecreaseCount(ctx context.Context, it item.Item) (item.Item, error) {
	next := it.Count - 1
	if next <= 0 && it.Presence == item.Have && d.zeroCountConsumes() {
		it.Count = 0
		return d.Consume(ctx, it)
	}
	if next < 1 {
		next = 1
	}
	it.Count = next
	return d.commitDebounced(ctx, it)
}

// CommitPresence toggles need/have. Moving to Have stamps the purchase time
// if absent; moving to Need clears it.
func (d *Delegate) CommitPresence(ctx context.Context, it item.Item) (item.Item, error) {
	it.Presence = it.Presence.Flip()
	if it.Presence == item.Have {
		if it.Purchased.IsZero() {
			it.Purchased = item.Timestamp{Time: time.Now()}
		}
	} else {
		it.Purchased = item.Timestamp{}
	}
	return d.commit(ctx, it)
}

// Undo re-commits the item in the undo slot with archival flags cleared and
// empties the slot. With nothing held it is a no-op, not an error.
func (d *Delegate) Undo(ctx context.Context) (item.Item, bool, error) {
	d.mu.Lock()
	held := d.undo
	d.undo = nil
	d.mu.Unlock()
	if held == nil {
		return item.Item{}, false, nil
	}
	it := held.Item
	it.Consumed = false
	it.Spoiled = false
	it, err := d.commit(ctx, it)
	return it, true, err
}

// ConfirmDelete clears the undo slot without restoring anything, used when
// the undo-offer window was dismissed or expired.
func (d *Delegate) ConfirmDelete() {
	d.setUndo(nil)
}

// AddAgain creates a fresh need-side item duplicating the source's name,
// count, and category. Expiration and purchase dates are deliberately not
// copied.
func (d *Delegate) AddAgain(ctx context.Context, src item.Item) (item.Item, error) {
	again := item.New(src.FridgeID, src.Name)
	again.Count = src.Count
	if again.Count < 1 {
		again.Count = 1
	}
	again.CategoryID = src.CategoryID
	again.Presence = item.Need
	return d.commit(ctx, again)
}

// Undoable returns a copy of the current undo slot, or nil when empty.
func (d *Delegate) Undoable() *Undoable {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.undo == nil {
		return nil
	}
	held := *d.undo
	return &held
}

// Close flushes pending debounced writes and discards the undo buffer
// without persisting it.
func (d *Delegate) Close() {
	d.mu.Lock()
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
	flush := make([]item.Item, 0, len(d.pending))
	for id, it := range d.pending {
		flush = append(flush, it)
		delete(d.pending, id)
	}
	d.undo = nil
	d.mu.Unlock()

	for _, it := range flush {
		d.write(context.Background(), it)
	}
}

// commit applies one immediate mutation: publish the optimistic event, then
// persist real items. A failed store write is reported but the optimistic
// event already published is not retracted; the in-memory state keeps the
// latest mutation attempt.
func (d *Delegate) commit(ctx context.Context, it item.Item) (item.Item, error) {
	d.dropPending(it.ID)
	op := bus.OpUpdate
	if !it.Real() {
		it = d.withTempID(it)
		d.Bus.Publish(bus.Event{Op: op, Item: &it})
		return it, nil
	}
	if isTempID(it.ID) {
		// The placeholder just became real: retire its temporary identity and
		// let the store assign a durable one.
		ghost := item.Item{ID: it.ID, FridgeID: it.FridgeID}
		d.Bus.Publish(bus.Event{Op: bus.OpDelete, Item: &ghost})
		it.ID = ""
	}
	stored, wasInsert, err := d.Persistence.UpsertItem(ctx, it)
	if err != nil {
		d.Bus.Publish(bus.Event{Op: op, Item: &it})
		return it, fmt.Errorf("app: upsert item: %w", err)
	}
	if wasInsert {
		op = bus.OpInsert
	}
	d.Bus.Publish(bus.Event{Op: op, Item: &stored})
	return stored, nil
}

// commitDebounced records the latest state for the item and schedules one
// write per burst of count taps. The optimistic event still goes out
// immediately so the view updates per tap.
func (d *Delegate) commitDebounced(ctx context.Context, it item.Item) (item.Item, error) {
	if !it.Real() {
		it = d.withTempID(it)
		d.Bus.Publish(bus.Event{Op: bus.OpUpdate, Item: &it})
		return it, nil
	}
	if it.ID == "" || isTempID(it.ID) {
		return d.commit(ctx, it)
	}
	d.Bus.Publish(bus.Event{Op: bus.OpUpdate, Item: &it})

	d.mu.Lock()
	d.pending[it.ID] = it
	if timer, ok := d.timers[it.ID]; ok {
		timer.Stop()
	}
	id := it.ID
	d.timers[id] = time.AfterFunc(d.debounce(), func() {
		d.mu.Lock()
		pending, ok := d.pending[id]
		delete(d.pending, id)
		delete(d.timers, id)
		d.mu.Unlock()
		if ok {
			d.write(context.Background(), pending)
		}
	})
	d.mu.Unlock()
	return it, nil
}

func (d *Delegate) write(ctx context.Context, it item.Item) {
	if _, _, err := d.Persistence.UpsertItem(ctx, it); err != nil {
		if d.OnError != nil {
			d.OnError(fmt.Errorf("app: flush item %q: %w", it.ID, err))
		}
	}
}

// dropPending cancels a scheduled count write for the id; the caller is
// about to persist a newer state that already carries the latest count.
func (d *Delegate) dropPending(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	if timer, ok := d.timers[id]; ok {
		timer.Stop()
		delete(d.timers, id)
	}
	delete(d.pending, id)
	d.mu.Unlock()
}

func (d *Delegate) setUndo(u *Undoable) {
	d.mu.Lock()
	d.undo = u
	d.mu.Unlock()
}

func (d *Delegate) zeroCountConsumes() bool {
	if d.ZeroCountConsumes == nil {
		return false
	}
	return d.ZeroCountConsumes()
}

func (d *Delegate) debounce() time.Duration {
	if d.Debounce > 0 {
		return d.Debounce
	}
	return DefaultDebounce
}

// withTempID guarantees every item flowing through the bus has an identity
// so the upsert merge applies events exactly once. Placeholders get a
// temporary id that is never persisted.
func (d *Delegate) withTempID(it item.Item) item.Item {
	if it.ID == "" {
		it.ID = fmt.Sprintf("tmp-%x", time.Now().UnixNano())
	}
	return it
}

func isTempID(id string) bool {
	return len(id) > 4 && id[:4] == "tmp-"
}
