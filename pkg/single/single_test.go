package single

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoCollapsesConcurrentCalls(t *testing.T) {
	r := New()

	var runs int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context) error {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.Do(context.Background(), "refresh", fn); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	<-started
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Do(context.Background(), "refresh", fn); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	// Give the joiners time to coalesce onto the in-flight run.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// Trailing run is async; wait for it to settle.
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runs) < 2 {
		select {
		case <-deadline:
			t.Fatalf("trailing run never happened, runs=%d", atomic.LoadInt32(&runs))
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	time.Sleep(100 * time.Millisecond)

	// One leading run plus at most one trailing run for the whole burst.
	if got := atomic.LoadInt32(&runs); got > 2 {
		t.Fatalf("expected at most 2 executions for 6 calls, got %d", got)
	}
}

func TestDoErrorSharedAndKeyFreed(t *testing.T) {
	r := New()
	boom := errors.New("boom")

	err := r.Do(context.Background(), "refresh", func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// The failed run must not wedge the key.
	ran := false
	if err := r.Do(context.Background(), "refresh", func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatalf("second call after failure did not run")
	}
}

func TestDoDistinctKeysRunIndependently(t *testing.T) {
	r := New()

	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = r.Do(context.Background(), "refresh", func(ctx context.Context) error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	done := make(chan error, 1)
	go func() {
		done <- r.Do(context.Background(), "undo", func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("a different key must not wait behind refresh")
	}
	close(release)
}

func TestTrailingErrorGoesToOnError(t *testing.T) {
	r := New()
	boom := errors.New("boom")

	got := make(chan error, 1)
	r.OnError = func(key string, err error) {
		got <- err
	}

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = r.Do(context.Background(), "refresh", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	joined := make(chan struct{})
	go func() {
		defer close(joined)
		// Joins the in-flight run; its own fn becomes the trailing run.
		_ = r.Do(context.Background(), "refresh", func(ctx context.Context) error {
			return boom
		})
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	<-joined

	select {
	case err := <-got:
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trailing error")
	}
}

func TestLeaderRunSatisfiesOwnPendingRegistration(t *testing.T) {
	r := New()

	var runs int32
	c := &call{fn: func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}

	// A caller that saw an active run registers itself as pending, but the
	// run finishes and the flight group forgets the key before the caller
	// reaches the group. The caller then leads its own execution, which
	// must consume the registration rather than leave a trailing run owed.
	r.mu.Lock()
	r.pending["refresh"] = c
	r.mu.Unlock()

	err, leader := r.fly(context.Background(), "refresh", c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !leader {
		t.Fatalf("caller must lead with no run in flight")
	}
	r.runPending("refresh")

	// A trailing run would be async; give it room to show up.
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected exactly 1 execution, got %d", got)
	}
}
