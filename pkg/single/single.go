// Package single collapses concurrent invocations of one logical operation
// (keyed by name, e.g. "refresh" or "undo") into a single execution, so
// repeated user actions never produce duplicate store round-trips.
package single

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Func is one executable unit of work.
type Func func(context.Context) error

// Runner guarantees at most one in-flight execution per key. Callers that
// arrive while a run is active share its result; of the calls that were
// coalesced away, only the most recent one is executed once more after the
// active run finishes (last writer wins). Supersession coalesces the caller
// side only; it never cancels the underlying operation.
type Runner struct {
	// OnError receives failures from trailing runs, which have no caller
	// left to return them to. May be nil.
	OnError func(key string, err error)

	group   singleflight.Group
	mu      sync.Mutex
	active  map[string]bool
	pending map[string]*call
}

// call wraps a Func so pending registrations are comparable by identity.
type call struct {
	fn Func
}

// New creates a Runner with no keys in flight.
func New() *Runner {
	return &Runner{
		active:  make(map[string]bool),
		pending: make(map[string]*call),
	}
}

// Do executes fn under key, or joins an in-flight execution of the same key
// and returns its result. Errors free the key for the next call; they are
// returned to every sharing caller, never swallowed.
func (r *Runner) Do(ctx context.Context, key string, fn Func) error {
	c := &call{fn: fn}
	r.mu.Lock()
	if r.active[key] {
		// Coalesce: remember only the most recent requested call.
		r.pending[key] = c
	}
	r.mu.Unlock()

	err, leader := r.fly(ctx, key, c)
	if leader {
		r.runPending(key)
	}
	return err
}

// fly runs c through the flight group. leader reports whether c actually
// executed, as opposed to joining a run already in progress.
func (r *Runner) fly(ctx context.Context, key string, c *call) (error, bool) {
	var leader bool
	_, err, _ := r.group.Do(key, func() (interface{}, error) {
		leader = true
		r.mu.Lock()
		r.active[key] = true
		// A caller that registered itself as pending can still become the
		// leader when the previous run finishes first; its registration is
		// satisfied by this execution, not owed a trailing run.
		if r.pending[key] == c {
			delete(r.pending, key)
		}
		r.mu.Unlock()
		defer func() {
			r.mu.Lock()
			r.active[key] = false
			r.mu.Unlock()
		}()
		return nil, c.fn(ctx)
	})
	return err, leader
}

// runPending executes at most one coalesced call after the in-flight run
// completed. The trailing run happens asynchronously; nobody is waiting on
// it, so failures go to OnError.
func (r *Runner) runPending(key string) {
	r.mu.Lock()
	next, ok := r.pending[key]
	delete(r.pending, key)
	r.mu.Unlock()
	if !ok {
		return
	}

	go func() {
		err, leader := r.fly(context.Background(), key, next)
		if err != nil && r.OnError != nil {
			r.OnError(key, err)
		}
		if leader {
			r.runPending(key)
		}
	}()
}
