package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/fridge"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/store"
)

type fakeStore struct {
	mu         sync.Mutex
	items      map[string]item.Item
	upserts    int
	deletes    int
	failUpsert bool
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]item.Item{}}
}

func (f *fakeStore) Items(ctx context.Context, scope store.Scope, force bool) ([]item.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]item.Item, 0, len(f.items))
	for _, it := range f.items {
		if scope.All() || it.FridgeID == scope.FridgeID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertItem(ctx context.Context, it item.Item) (item.Item, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return it, false, errors.New("upsert failed")
	}
	f.upserts++
	wasInsert := false
	if it.ID == "" {
		f.nextID++
		it.ID = fmt.Sprintf("id-%d", f.nextID)
		wasInsert = true
	} else if _, ok := f.items[it.ID]; !ok {
		wasInsert = true
	}
	f.items[it.ID] = it
	return it, wasInsert, nil
}

func (f *fakeStore) DeleteItem(ctx context.Context, it item.Item, offerUndo bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if _, ok := f.items[it.ID]; !ok {
		return false, nil
	}
	delete(f.items, it.ID)
	return true, nil
}

func (f *fakeStore) Fridges(ctx context.Context) ([]fridge.Fridge, error) {
	return nil, nil
}

func (f *fakeStore) Fridge(ctx context.Context, id string) (fridge.Fridge, error) {
	return fridge.Fridge{ID: id}, nil
}

func (f *fakeStore) UpsertFridge(ctx context.Context, fr fridge.Fridge) (fridge.Fridge, bool, error) {
	return fr, true, nil
}

func (f *fakeStore) DeleteFridge(ctx context.Context, fr fridge.Fridge, offerUndo bool) (bool, error) {
	return true, nil
}

func (f *fakeStore) DeleteAllFridges(ctx context.Context) error {
	return nil
}

func (f *fakeStore) Watch(ctx context.Context, scope store.Scope) (<-chan bus.Event, error) {
	ch := make(chan bus.Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakeStore) stored(id string) (item.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	return it, ok
}

func seed(t *testing.T, f *fakeStore, name string) item.Item {
	t.Helper()
	it, _, err := f.UpsertItem(context.Background(), item.New("f1", name))
	if err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return it
}

func TestConsumeArchivesAndOffersQuickAdd(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())
	it := seed(t, f, "milk")

	done, err := d.Consume(context.Background(), it)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !done.Consumed {
		t.Fatalf("expected consumed flag set")
	}

	stored, ok := f.stored(it.ID)
	if !ok || !stored.Consumed {
		t.Fatalf("consumed flag not persisted: %+v", stored)
	}

	u := d.Undoable()
	if u == nil || !u.CanQuickAdd {
		t.Fatalf("expected quick-add undo slot, got %+v", u)
	}
}

func TestDeleteNotRealIsContractViolation(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())

	err := d.Delete(context.Background(), item.Item{FridgeID: "f1"})
	if !errors.Is(err, ErrNotReal) {
		t.Fatalf("expected ErrNotReal, got %v", err)
	}
}

func TestDeleteOffersUndoWithoutQuickAdd(t *testing.T) {
	f := newFakeStore()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := b.Subscribe(ctx)

	d := NewDelegate(f, b)
	it := seed(t, f, "milk")

	if err := d.Delete(context.Background(), it); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := f.stored(it.ID); ok {
		t.Fatalf("item still in store after delete")
	}

	u := d.Undoable()
	if u == nil || u.CanQuickAdd {
		t.Fatalf("delete undo must not be quick-add, got %+v", u)
	}

	select {
	case ev := <-sub:
		if ev.Op != bus.OpDelete || !ev.OfferUndo {
			t.Fatalf("expected delete event offering undo, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delete event")
	}
}

func TestConfirmDeleteClearsSlot(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())
	it := seed(t, f, "milk")

	if err := d.Delete(context.Background(), it); err != nil {
		t.Fatalf("delete: %v", err)
	}
	d.ConfirmDelete()
	if d.Undoable() != nil {
		t.Fatalf("undo slot must be empty after confirm")
	}
}

func TestUndoRestoresArchivedItem(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())
	it := seed(t, f, "milk")

	if _, err := d.Consume(context.Background(), it); err != nil {
		t.Fatalf("consume: %v", err)
	}
	restored, ok, err := d.Undo(context.Background())
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !ok {
		t.Fatalf("expected undo to restore something")
	}
	if restored.Consumed || restored.Spoiled {
		t.Fatalf("restored item still archived: %+v", restored)
	}
	if d.Undoable() != nil {
		t.Fatalf("undo slot must be emptied after undo")
	}
}

func TestUndoEmptyIsNoop(t *testing.T) {
	d := NewDelegate(newFakeStore(), bus.New())
	_, ok, err := d.Undo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("empty undo must be a no-op")
	}
}

func TestAddAgainCopiesOnlyIdentityFields(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())

	src := item.New("f1", "milk")
	src.Count = 2
	src.CategoryID = "dairy"
	src.Expires = item.Timestamp{Time: time.Now()}
	src.Purchased = item.Timestamp{Time: time.Now()}
	src.Consumed = true

	again, err := d.AddAgain(context.Background(), src)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if again.Name != "milk" || again.Count != 2 || again.CategoryID != "dairy" {
		t.Fatalf("identity fields not copied: %+v", again)
	}
	if again.Presence != item.Need {
		t.Fatalf("re-added item must land on the shopping side, got %s", again.Presence)
	}
	if !again.Expires.IsZero() || !again.Purchased.IsZero() {
		t.Fatalf("dates must not be copied: %+v", again)
	}
	if again.Consumed || again.Spoiled {
		t.Fatalf("re-added item must not be archived: %+v", again)
	}
}

func TestCommitPresenceStampsPurchase(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())

	it := seed(t, f, "coffee")
	it.Presence = item.Need
	it.Purchased = item.Timestamp{}

	bought, err := d.CommitPresence(context.Background(), it)
	if err != nil {
		t.Fatalf("flip to have: %v", err)
	}
	if bought.Presence != item.Have || bought.Purchased.IsZero() {
		t.Fatalf("flip to have must stamp purchase: %+v", bought)
	}

	back, err := d.CommitPresence(context.Background(), bought)
	if err != nil {
		t.Fatalf("flip to need: %v", err)
	}
	if back.Presence != item.Need || !back.Purchased.IsZero() {
		t.Fatalf("flip to need must clear purchase: %+v", back)
	}
}

func TestDecreaseCountFloorsAtOne(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())
	d.Debounce = time.Millisecond

	it := seed(t, f, "milk")
	it.Count = 1

	// Policy disabled: the count never reaches zero.
	got, err := d.DecreaseCount(context.Background(), it)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if got.Count != 1 || got.Archived() {
		t.Fatalf("expected floor at one, got %+v", got)
	}
}

func TestDecreaseCountZeroConsumesUnderPolicy(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())
	d.ZeroCountConsumes = func() bool { return true }

	it := seed(t, f, "milk")
	it.Count = 1

	got, err := d.DecreaseCount(context.Background(), it)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if !got.Consumed {
		t.Fatalf("zero count under policy must consume, got %+v", got)
	}
	if got.Count != 0 {
		t.Fatalf("consumed-at-zero must keep the zero count, got %d", got.Count)
	}
	if u := d.Undoable(); u == nil || !u.CanQuickAdd {
		t.Fatalf("consume through zero must offer quick re-add")
	}
}

func TestCountTapsDebounceToOneWrite(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())
	d.Debounce = 20 * time.Millisecond

	it := seed(t, f, "milk")
	before := f.upsertCount()

	for i := 0; i < 5; i++ {
		var err error
		if it, err = d.IncreaseCount(context.Background(), it); err != nil {
			t.Fatalf("increase: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for f.upsertCount() == before {
		select {
		case <-deadline:
			t.Fatal("debounced write never flushed")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	time.Sleep(100 * time.Millisecond)

	if got := f.upsertCount() - before; got != 1 {
		t.Fatalf("expected one flushed write for the burst, got %d", got)
	}
	stored, _ := f.stored(it.ID)
	if stored.Count != 6 {
		t.Fatalf("expected final count 6, got %d", stored.Count)
	}
}

func TestCloseFlushesPendingWrites(t *testing.T) {
	f := newFakeStore()
	d := NewDelegate(f, bus.New())
	d.Debounce = time.Hour

	it := seed(t, f, "milk")
	before := f.upsertCount()

	if _, err := d.IncreaseCount(context.Background(), it); err != nil {
		t.Fatalf("increase: %v", err)
	}
	d.Close()

	if got := f.upsertCount() - before; got != 1 {
		t.Fatalf("close must flush the pending write, got %d writes", got)
	}
	stored, _ := f.stored(it.ID)
	if stored.Count != 2 {
		t.Fatalf("expected flushed count 2, got %d", stored.Count)
	}
}

func TestPlaceholderStaysOptimistic(t *testing.T) {
	f := newFakeStore()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := b.Subscribe(ctx)

	d := NewDelegate(f, b)
	ghost := item.Item{FridgeID: "f1"}

	got, err := d.Add(context.Background(), ghost)
	if err != nil {
		t.Fatalf("add placeholder: %v", err)
	}
	if !strings.HasPrefix(got.ID, "tmp-") {
		t.Fatalf("placeholder must get a temporary id, got %q", got.ID)
	}
	if f.upsertCount() != 0 {
		t.Fatalf("placeholder must not hit the store")
	}

	select {
	case ev := <-sub:
		if ev.Item == nil || ev.Item.ID != got.ID {
			t.Fatalf("expected optimistic event for placeholder, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for optimistic event")
	}
}

func TestPlaceholderPromotionRetiresTempID(t *testing.T) {
	f := newFakeStore()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := b.Subscribe(ctx)

	d := NewDelegate(f, b)
	ghost, err := d.Add(context.Background(), item.Item{FridgeID: "f1"})
	if err != nil {
		t.Fatalf("add placeholder: %v", err)
	}
	<-sub // optimistic placeholder event

	ghost.Name = "milk"
	real, err := d.Add(context.Background(), ghost)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if strings.HasPrefix(real.ID, "tmp-") || real.ID == "" {
		t.Fatalf("promotion must assign a durable id, got %q", real.ID)
	}

	// First the ghost delete for the temporary identity, then the insert.
	select {
	case ev := <-sub:
		if ev.Op != bus.OpDelete || ev.Item.ID != ghost.ID {
			t.Fatalf("expected ghost delete for %q, got %+v", ghost.ID, ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ghost delete")
	}
	select {
	case ev := <-sub:
		if ev.Op != bus.OpInsert || ev.Item.ID != real.ID {
			t.Fatalf("expected insert for %q, got %+v", real.ID, ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for insert")
	}
}

func TestFailedWriteKeepsOptimisticEvent(t *testing.T) {
	f := newFakeStore()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := b.Subscribe(ctx)

	d := NewDelegate(f, b)
	it := seed(t, f, "milk")
	f.failUpsert = true

	if _, err := d.Consume(context.Background(), it); err == nil {
		t.Fatalf("expected store failure to surface")
	}

	// The optimistic event still goes out; the view keeps the attempt.
	select {
	case ev := <-sub:
		if ev.Item == nil || !ev.Item.Consumed {
			t.Fatalf("expected optimistic consumed event, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for optimistic event")
	}
}
