// Package state owns the live, derived view over one inventory scope. All
// transitions are serialized through a single goroutine per store, so
// concurrent producers (the change bus, user intents, preference watchers)
// never compute against the same prior state at once. Every accepted
// transition re-runs the view pipeline over the retained item set and
// publishes a fresh snapshot; derived fields are never patched in place.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/prefs"
	"tableflip.dev/pantry/pkg/single"
	"tableflip.dev/pantry/pkg/store"
	"tableflip.dev/pantry/pkg/view"
)

// Logical operation keys for the single-flight runner.
const (
	keyRefresh = "refresh"
	keyUndo    = "undo"
)

// Store is the state container for one scope. Create it with New, start it
// with Open, and release every subscription and timer with Close.
type Store struct {
	scope       store.Scope
	persistence store.Persistence
	preferences *prefs.Prefs

	events   *bus.Bus
	delegate *app.Delegate
	flight   *single.Runner

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mailbox chan func()

	// Actor-owned: touched only from the loop goroutine.
	retained []item.Item
	phase    Phase
	err      error
	query    string
	sort     view.Sort
	showing  view.Showing
	vals     prefs.Values

	mu      sync.Mutex
	subs    map[int]chan ViewState
	nextSub int
	current ViewState
}

// New builds a store for the scope. preferences may be nil, in which case
// the documented defaults apply and no preference watching happens.
func New(scope store.Scope, persistence store.Persistence, preferences *prefs.Prefs) *Store {
	s := &Store{
		scope:       scope,
		persistence: persistence,
		preferences: preferences,
		events:      bus.New(),
		flight:      single.New(),
		now:         time.Now,
		mailbox:     make(chan func(), 256),
		phase:       PhaseIdle,
		vals:        prefs.Defaults(),
		subs:        make(map[int]chan ViewState),
	}
	if preferences != nil {
		s.vals = preferences.Current()
	}
	s.delegate = app.NewDelegate(persistence, s.events)
	s.delegate.ZeroCountConsumes = func() bool {
		if s.preferences == nil {
			return prefs.Defaults().ZeroCountConsumes
		}
		return s.preferences.Current().ZeroCountConsumes
	}
	s.delegate.OnError = func(err error) {
		s.enqueue(func() { s.recordErr(err) })
	}
	s.flight.OnError = func(key string, err error) {
		s.enqueue(func() { s.recordErr(fmt.Errorf("%s: %w", key, err)) })
	}
	s.current = ViewState{
		Phase:    PhaseIdle,
		Presence: scope.Presence,
	}
	return s
}

// Delegate exposes the update delegate for callers that drive mutations
// outside the intent dispatch path (e.g. CLI runners).
func (s *Store) Delegate() *app.Delegate {
	return s.delegate
}

// Open attaches the durable change stream and the preference watcher, starts
// the transition loop, and triggers the initial refresh.
func (s *Store) Open(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	s.cancel = cancel

	durable, err := s.persistence.Watch(ctx, s.scope)
	if err != nil {
		cancel()
		return fmt.Errorf("state: watch scope: %w", err)
	}
	s.events.Pump(ctx, durable)
	changes := s.events.Subscribe(ctx)

	var prefChanges <-chan prefs.Values
	if s.preferences != nil {
		s.vals = s.preferences.Current()
		prefChanges = s.preferences.Watch(ctx)
	}

	go s.loop(changes, prefChanges)

	s.Dispatch(Refresh{})
	return nil
}

// Close stops the transition loop, releases every subscription, flushes
// pending debounced writes, and discards the undo buffer without persisting
// it.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.delegate.Close()
}

// Subscribe returns the current snapshot followed by future ones. Slow
// consumers are conflated to the latest state rather than blocking the
// store. The channel closes when ctx or the store is done.
func (s *Store) Subscribe(ctx context.Context) <-chan ViewState {
	ch := make(chan ViewState, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.current
	s.mu.Unlock()

	if ctx != nil && s.ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
			case <-s.ctx.Done():
			}
			s.mu.Lock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
			s.mu.Unlock()
		}()
	}
	return ch
}

// Dispatch submits an intent as a transition request. Requests are applied
// one at a time in arrival order.
func (s *Store) Dispatch(in Intent) {
	s.enqueue(func() { s.apply(in) })
}

func (s *Store) enqueue(fn func()) {
	if s.ctx == nil {
		return
	}
	select {
	case s.mailbox <- fn:
	case <-s.ctx.Done():
	}
}

// loop is the serialization domain: every state transition happens here.
func (s *Store) loop(changes <-chan bus.Event, prefChanges <-chan prefs.Values) {
	defer s.closeSubs()
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.mailbox:
			fn()
		case ev, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.applyEvent(ev)
		case vals, ok := <-prefChanges:
			if !ok {
				prefChanges = nil
				continue
			}
			// Preference changes re-run the pipeline over the cached set;
			// no store round trip.
			s.vals = vals
			s.recompute()
		}
	}
}

func (s *Store) apply(in Intent) {
	switch in := in.(type) {
	case Refresh:
		s.startRefresh(in.Force)
	case Consume:
		s.mutate(in.Index, func(ctx context.Context, it item.Item) error {
			_, err := s.delegate.Consume(ctx, it)
			return err
		})
	case Spoil:
		s.mutate(in.Index, func(ctx context.Context, it item.Item) error {
			_, err := s.delegate.Spoil(ctx, it)
			return err
		})
	case Restore:
		s.mutate(in.Index, func(ctx context.Context, it item.Item) error {
			_, err := s.delegate.Restore(ctx, it)
			return err
		})
	case Delete:
		s.mutate(in.Index, func(ctx context.Context, it item.Item) error {
			return s.delegate.Delete(ctx, it)
		})
	case IncreaseCount:
		s.mutate(in.Index, func(ctx context.Context, it item.Item) error {
			_, err := s.delegate.IncreaseCount(ctx, it)
			return err
		})
	case DecreaseCount:
		s.mutate(in.Index, func(ctx context.Context, it item.Item) error {
			_, err := s.delegate.DecreaseCount(ctx, it)
			return err
		})
	case FlipPresence:
		s.mutate(in.Index, func(ctx context.Context, it item.Item) error {
			_, err := s.delegate.CommitPresence(ctx, it)
			return err
		})
	case Undo:
		s.startUndo()
	case ConfirmDelete:
		s.delegate.ConfirmDelete()
		s.recompute()
	case AddAgain:
		src := in.Item
		go func() {
			if _, err := s.delegate.AddAgain(s.ctx, src); err != nil {
				s.enqueue(func() { s.recordErr(err) })
			}
		}()
	case SetSearch:
		s.query = in.Query
		s.recompute()
	case SetSort:
		s.sort = in.Mode
		s.recompute()
	case SetShowing:
		s.showing = in.Mode
		s.recompute()
	}
}

// mutate resolves the displayed index and runs the delegate operation off
// the loop goroutine; store round-trips must not block transition
// processing. The optimistic change arrives back through the bus.
func (s *Store) mutate(index int, op func(context.Context, item.Item) error) {
	it, ok := s.displayedAt(index)
	if !ok {
		s.recordErr(fmt.Errorf("state: no displayed item at index %d", index))
		return
	}
	go func() {
		if err := op(s.ctx, it); err != nil {
			// The optimistic in-memory change is deliberately not rolled
			// back; the view keeps the latest mutation attempt.
			s.enqueue(func() { s.recordErr(err) })
			return
		}
		// Pick up undo-slot changes even before the bus event lands.
		s.enqueue(s.recompute)
	}()
}

func (s *Store) displayedAt(index int) (item.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.current.Displayed) {
		return item.Item{}, false
	}
	return s.current.Displayed[index], true
}

func (s *Store) startRefresh(force bool) {
	s.phase = PhaseLoading
	s.recompute()
	go func() {
		// Errors surface through the transitions enqueued below; the
		// single-flight runner only collapses concurrent refreshes.
		_ = s.flight.Do(s.ctx, keyRefresh, func(ctx context.Context) error {
			items, err := s.persistence.Items(ctx, s.scope, force)
			if err != nil {
				s.enqueue(func() { s.failRefresh(err) })
				return err
			}
			s.enqueue(func() { s.finishRefresh(items) })
			return nil
		})
	}()
}

func (s *Store) finishRefresh(items []item.Item) {
	s.retained = view.Valid(items)
	s.phase = PhaseReady
	s.err = nil
	s.recompute()
}

// failRefresh keeps the last good displayed list; only the phase and the
// error slot change.
func (s *Store) failRefresh(err error) {
	s.phase = PhaseError
	s.err = fmt.Errorf("state: refresh: %w", err)
	s.recompute()
}

func (s *Store) startUndo() {
	go func() {
		_ = s.flight.Do(s.ctx, keyUndo, func(ctx context.Context) error {
			if _, _, err := s.delegate.Undo(ctx); err != nil {
				s.enqueue(func() { s.recordErr(err) })
				return err
			}
			s.enqueue(s.recompute)
			return nil
		})
	}()
}

func (s *Store) recordErr(err error) {
	s.err = err
	s.recompute()
}

// applyEvent merges one change event into the retained set. Upsert-by-id
// semantics make re-delivery and cross-source races harmless.
func (s *Store) applyEvent(ev bus.Event) {
	switch {
	case ev.Op == bus.OpDeleteAll:
		s.retained = nil
	case ev.Item != nil:
		if !s.scope.All() && ev.Item.FridgeID != s.scope.FridgeID {
			return
		}
		switch ev.Op {
		case bus.OpInsert, bus.OpUpdate:
			s.retained = view.Upsert(s.retained, *ev.Item)
		case bus.OpDelete:
			s.retained = view.Remove(s.retained, *ev.Item)
		default:
			return
		}
	case ev.Fridge != nil:
		switch {
		case ev.Op == bus.OpDelete && !s.scope.All() && ev.Fridge.ID == s.scope.FridgeID:
			s.retained = nil
		case ev.Op == bus.OpDelete && s.scope.All():
			kept := make([]item.Item, 0, len(s.retained))
			for _, it := range s.retained {
				if it.FridgeID == ev.Fridge.ID {
					continue
				}
				kept = append(kept, it)
			}
			s.retained = kept
		case ev.Fridge.ID == "":
			// Catalog changed in a way the watcher could not classify.
			s.startRefresh(false)
			return
		default:
			// Fridge inserts and renames do not affect the item set.
			return
		}
	default:
		return
	}

	s.retained = view.Valid(s.retained)
	if s.phase == PhaseReady || s.phase == PhaseError {
		s.phase = PhaseReady
		s.err = nil
	}
	s.recompute()
}

// recompute runs the full view pipeline and publishes the resulting
// snapshot.
func (s *Store) recompute() {
	now := s.now()
	cfg := view.Config{
		Presence:       s.scope.Presence,
		AllFridges:     s.scope.All(),
		Showing:        s.showing,
		Sort:           s.sort,
		Query:          s.query,
		SearchShowsAll: s.vals.SearchShowsAll,
		HorizonDays:    s.vals.HorizonDays,
		SameDayExpired: s.vals.SameDayExpired,
	}
	items := view.Valid(s.retained)
	st := ViewState{
		Phase:     s.phase,
		Items:     items,
		Displayed: view.Visible(items, cfg, now),
		Query:     s.query,
		Sort:      s.sort,
		Showing:   s.showing,
		Presence:  s.scope.Presence,
		Undo:      s.delegate.Undoable(),
		Counts:    view.Tally(items, cfg, now),
		Loading:   s.phase == PhaseLoading,
		Err:       s.err,
	}
	s.setCurrent(st)
}

func (s *Store) setCurrent(st ViewState) {
	s.mu.Lock()
	s.current = st
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			// Swap out the stale snapshot so slow consumers always observe
			// the latest state.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
	s.mu.Unlock()
}

func (s *Store) closeSubs() {
	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
}
