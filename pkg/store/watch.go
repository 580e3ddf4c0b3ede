package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/fridge"
	"tableflip.dev/pantry/pkg/item"
)

// Watch streams change events for the scope until ctx is cancelled. Callers
// should drain the returned channel to avoid losing events. The channel is
// closed once ctx is done or the watcher encounters an unrecoverable error.
//
// The durable watcher cannot know whether a delete observed on disk should
// offer undo, so OfferUndo is always false here; delegates that initiate a
// delete manage the undo buffer themselves.
func (p *persistence) Watch(ctx context.Context, scope Scope) (<-chan bus.Event, error) {
	if p.basePath == "" {
		return nil, errors.New("store: persistence base path unknown")
	}

	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "store: watcher close: %v\n", err)
			}
		})
	}

	dirs, err := p.scopeDirs(scope)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("store: enumerate directories: %w", err)
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("store: watch %s: %w", dir, err)
		}
	}

	events := make(chan bus.Event, 64)

	go func() {
		defer close(events)
		defer closeWatcher()

		// Track directories we already watch so we can add new ones at runtime
		// without duplicating watches.
		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		send := func(ev bus.Event) {
			select {
			case events <- ev:
			default:
				// Drop events if the consumer is not ready; a subsequent
				// refresh will pick up the changes. This keeps filesystem
				// storms from blocking the watcher goroutine.
			}
		}

		throttle := newChangeThrottle(100*time.Millisecond, p)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Surface watcher errors as a catalog change so clients
				// refresh even if we cannot classify what happened.
				throttle.Enqueue(change{op: bus.OpUpdate, catalog: true}, send)
				_ = err
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}

				if evt.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						absDir := filepath.Clean(evt.Name)
						if !p.dirInScope(absDir, scope) {
							continue
						}
						if _, found := watched[absDir]; !found {
							if err := watcher.Add(absDir); err != nil {
								fmt.Fprintf(os.Stderr, "store: watch %s: %v\n", absDir, err)
							} else {
								watched[absDir] = struct{}{}
							}
						}
						// A new directory is a new fridge bucket.
						if id := fromPathSegment(filepath.Base(absDir)); id != "" {
							throttle.Enqueue(change{op: bus.OpInsert, fridgeID: id}, send)
						}
						continue
					}
				}

				ch, ok := p.classify(evt, scope)
				if !ok {
					continue
				}
				throttle.Enqueue(ch, send)
			}
		}
	}()

	return events, nil
}

// change is the throttled unit of work derived from a filesystem event.
type change struct {
	op       bus.Op
	key      string // diskv key, set for item changes
	fridgeID string // set for fridge changes
	catalog  bool   // fridge metadata changed, identity unknown
}

// classify maps a filesystem event onto a change, filtering by scope.
func (p *persistence) classify(evt fsnotify.Event, scope Scope) (change, bool) {
	name := filepath.Clean(evt.Name)

	if name == filepath.Clean(p.basePath) {
		if evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			return change{op: bus.OpDeleteAll}, true
		}
		return change{}, false
	}

	rel, err := filepath.Rel(p.basePath, name)
	if err != nil || rel == "." {
		return change{}, false
	}
	if strings.HasSuffix(rel, ".tmp") {
		return change{}, false
	}

	if rel == fridgeIndexFile {
		return change{op: bus.OpUpdate, catalog: true}, true
	}

	parts := strings.Split(rel, string(os.PathSeparator))
	switch len(parts) {
	case 1:
		// A fridge directory itself went away.
		if evt.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
			return change{}, false
		}
		id := fromPathSegment(parts[0])
		if id == "" || (!scope.All() && id != scope.FridgeID) {
			return change{}, false
		}
		return change{op: bus.OpDelete, fridgeID: id}, true
	case 2:
		id := fromPathSegment(parts[0])
		if id == "" || (!scope.All() && id != scope.FridgeID) {
			return change{}, false
		}
		key := parts[0] + "-" + parts[1]
		op := bus.OpUpdate
		if evt.Op&fsnotify.Create == fsnotify.Create {
			op = bus.OpInsert
		}
		if evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			op = bus.OpDelete
		}
		return change{op: op, key: key}, true
	}
	return change{}, false
}

// scopeDirs returns the directories to watch for the scope.
func (p *persistence) scopeDirs(scope Scope) ([]string, error) {
	if !scope.All() {
		dirs := []string{p.basePath}
		fridgeDir := filepath.Join(p.basePath, toPathSegment(scope.FridgeID))
		if _, err := os.Stat(fridgeDir); err == nil {
			dirs = append(dirs, fridgeDir)
		}
		return dirs, nil
	}

	dirs := []string{p.basePath}
	err := filepath.WalkDir(p.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != p.basePath {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

func (p *persistence) dirInScope(dir string, scope Scope) bool {
	if scope.All() {
		return true
	}
	return filepath.Base(dir) == toPathSegment(scope.FridgeID)
}

// changeThrottle coalesces rapid filesystem notifications so consumers see
// one event per burst of writes instead of one per syscall.
type changeThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[change]struct{}
	order   []change
	delay   time.Duration
	p       *persistence
}

func newChangeThrottle(delay time.Duration, p *persistence) *changeThrottle {
	return &changeThrottle{
		delay:   delay,
		pending: make(map[change]struct{}),
		p:       p,
	}
}

func (t *changeThrottle) Enqueue(ch change, send func(bus.Event)) {
	t.mu.Lock()
	if _, dup := t.pending[ch]; !dup {
		t.pending[ch] = struct{}{}
		t.order = append(t.order, ch)
	}

	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
	t.mu.Unlock()
}

func (t *changeThrottle) flush(send func(bus.Event)) {
	t.mu.Lock()
	order := t.order
	t.pending = make(map[change]struct{})
	t.order = nil
	t.timer = nil
	t.mu.Unlock()

	for _, ch := range order {
		if ev, ok := t.p.resolve(ch); ok {
			send(ev)
		}
	}
}

func (t *changeThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}

// resolve turns a throttled change into a full bus event, reading the backing
// record for item upserts so subscribers receive complete payloads.
func (p *persistence) resolve(ch change) (bus.Event, bool) {
	switch {
	case ch.op == bus.OpDeleteAll:
		return bus.Event{Op: bus.OpDeleteAll}, true
	case ch.catalog:
		return bus.Event{Op: ch.op, Fridge: &fridge.Fridge{}}, true
	case ch.fridgeID != "":
		f := fridge.Fridge{ID: ch.fridgeID}
		if ch.op != bus.OpDelete {
			if loaded, err := p.Fridge(context.Background(), ch.fridgeID); err == nil {
				f = loaded
			}
		}
		return bus.Event{Op: ch.op, Fridge: &f}, true
	case ch.key != "":
		if ch.op == bus.OpDelete {
			pk := keyToPathTransform(ch.key)
			it := item.Item{ID: pk.FileName}
			if len(pk.Path) > 0 {
				it.FridgeID = fromPathSegment(pk.Path[0])
			}
			return bus.Event{Op: bus.OpDelete, Item: &it}, true
		}
		it, err := p.read(ch.key, true)
		if err != nil {
			// The file may already be gone again; the delete notification
			// will follow on its own.
			return bus.Event{}, false
		}
		return bus.Event{Op: ch.op, Item: &it}, true
	}
	return bus.Event{}, false
}
