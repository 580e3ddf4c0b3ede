// Package bus merges durable persistence change events and transient
// optimistic events into a single multicast stream. Ordering is preserved
// within one source; no ordering is guaranteed across sources, so consumers
// must apply events with upsert-by-id semantics.
package bus

import (
	"context"
	"fmt"
	"sync"

	"tableflip.dev/pantry/pkg/fridge"
	"tableflip.dev/pantry/pkg/item"
)

// Op describes the kind of change an event carries.
type Op int

const (
	// OpInsert announces a new item or fridge.
	OpInsert Op = iota
	// OpUpdate announces a change to an existing item or fridge.
	OpUpdate
	// OpDelete announces a removal.
	OpDelete
	// OpDeleteAll announces that every fridge was removed.
	OpDeleteAll
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpDeleteAll:
		return "delete-all"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Event is one change notification. Exactly one of Item and Fridge is set,
// except for OpDeleteAll which carries neither. OfferUndo is only meaningful
// on deletes.
type Event struct {
	Op        Op
	Item      *item.Item
	Fridge    *fridge.Fridge
	OfferUndo bool
}

// Bus is a push-based multicast stream. Subscribing starts delivery of future
// events only; there is no replay.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// New creates an empty bus with no subscribers.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a consumer for future events. The subscription is
// released and the channel closed once ctx is done.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish delivers the event to every current subscriber. This is the
// optimistic side: delegates feed synthetic events for not-yet-persisted
// items through here so they drive refreshes the same way durable events do.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop events if the consumer is not ready; a subsequent refresh
			// will pick up the change and the upsert merge keeps duplicate or
			// missing deliveries from corrupting state.
		}
	}
}

// Pump forwards events from a durable source until the source closes or ctx
// is done. Each source gets its own goroutine, which preserves per-source
// delivery order end to end.
func (b *Bus) Pump(ctx context.Context, src <-chan Event) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-src:
				if !ok {
					return
				}
				b.Publish(ev)
			}
		}
	}()
}
