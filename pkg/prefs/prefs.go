// Package prefs exposes the user preferences the list engine reacts to:
// the expiring-soon horizon, the same-day-expired policy, the empty-search
// behavior, and the zero-count-means-consumed policy.
//
// Preference reads never fail: a broken or missing value falls back to the
// last known good snapshot (or the documented default) and is logged.
package prefs

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"tableflip.dev/pantry/pkg/timeutil"
)

const (
	// KeyHorizon is the expiring-soon span, e.g. "3d" or "1w".
	KeyHorizon = "expiring-horizon"
	// KeySameDayExpired controls whether an item expiring today counts as
	// already expired.
	KeySameDayExpired = "same-day-expired"
	// KeySearchShowsAll controls whether an empty search in the all-fridges
	// scope matches everything or nothing.
	KeySearchShowsAll = "search-shows-all"
	// KeyZeroCountConsumes routes a count decrease to zero through consume.
	KeyZeroCountConsumes = "zero-count-consumes"
)

// Values is one consistent snapshot of every preference.
type Values struct {
	HorizonDays       int
	SameDayExpired    bool
	SearchShowsAll    bool
	ZeroCountConsumes bool
}

// Defaults returns the documented default for every preference.
func Defaults() Values {
	horizon, _, err := timeutil.ParseSpan(timeutil.DefaultHorizon)
	if err != nil {
		panic(err)
	}
	return Values{
		HorizonDays:       timeutil.Days(horizon),
		SameDayExpired:    false,
		SearchShowsAll:    true,
		ZeroCountConsumes: true,
	}
}

// Prefs reads preferences from the .pantry config file and fans out change
// notifications to watchers.
type Prefs struct {
	mu       sync.Mutex
	v        *viper.Viper
	last     Values
	subs     map[int]chan Values
	next     int
	watching bool
}

// Load builds a Prefs bound to the .pantry config file. A missing file is
// fine; defaults apply.
func Load() (*Prefs, error) {
	v := viper.New()
	v.SetConfigName(".pantry")
	v.SetEnvPrefix("PANTRY")
	v.AutomaticEnv()
	v.AddConfigPath("./")
	v.AddConfigPath("$HOME")

	def := Defaults()
	v.SetDefault(KeyHorizon, timeutil.DefaultHorizon)
	v.SetDefault(KeySameDayExpired, def.SameDayExpired)
	v.SetDefault(KeySearchShowsAll, def.SearchShowsAll)
	v.SetDefault(KeyZeroCountConsumes, def.ZeroCountConsumes)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("prefs: read config: %w", err)
		}
	}

	p := &Prefs{v: v, last: def, subs: make(map[int]chan Values)}
	p.last = p.snapshot()
	return p, nil
}

// Current returns the latest preference snapshot. It never fails: unparsable
// values fall back to the last known good snapshot and are logged.
func (p *Prefs) Current() Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = p.snapshotLocked()
	return p.last
}

func (p *Prefs) snapshot() Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Prefs) snapshotLocked() Values {
	vals := p.last

	if raw := p.v.GetString(KeyHorizon); raw != "" {
		if span, _, err := timeutil.ParseSpan(raw); err != nil {
			fmt.Fprintf(os.Stderr, "prefs: %s: %v\n", KeyHorizon, err)
		} else {
			vals.HorizonDays = timeutil.Days(span)
		}
	}
	vals.SameDayExpired = p.v.GetBool(KeySameDayExpired)
	vals.SearchShowsAll = p.v.GetBool(KeySearchShowsAll)
	vals.ZeroCountConsumes = p.v.GetBool(KeyZeroCountConsumes)
	return vals
}

// Watch delivers a snapshot whenever the config file changes, until ctx is
// done. The first watcher starts the underlying file watch.
func (p *Prefs) Watch(ctx context.Context) <-chan Values {
	ch := make(chan Values, 4)

	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = ch
	if !p.watching {
		p.watching = true
		p.v.OnConfigChange(func(fsnotify.Event) {
			p.notify()
		})
		p.v.WatchConfig()
	}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, id)
		close(ch)
		p.mu.Unlock()
	}()

	return ch
}

func (p *Prefs) notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = p.snapshotLocked()
	for _, ch := range p.subs {
		select {
		case ch <- p.last:
		default:
			// A watcher that has not drained yet will still observe the final
			// state on its next receive; snapshots are cumulative.
		}
	}
}
