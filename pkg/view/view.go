// Package view contains the pure functions that derive the visible item list
// and aggregate counts from the full retained item set. Everything here is
// deterministic and side-effect free; the state store re-runs the pipeline on
// every accepted transition instead of patching derived data in place.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tableflip.dev/pantry/pkg/item"
)

// Sort selects the display ordering.
type Sort int

const (
	// SortCreated orders by creation time, oldest first.
	SortCreated Sort = iota
	// SortName orders by name, case-insensitive.
	SortName
	// SortPurchased orders by purchase date; items without one go last.
	SortPurchased
	// SortExpiration orders by expiration date; items without one go last.
	SortExpiration
)

// ParseSort converts a string to a Sort. The empty string means SortCreated.
func ParseSort(raw string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "created":
		return SortCreated, nil
	case "name":
		return SortName, nil
	case "purchased":
		return SortPurchased, nil
	case "expiration", "expires":
		return SortExpiration, nil
	}
	return SortCreated, fmt.Errorf("view: unknown sort %q", raw)
}

func (s Sort) String() string {
	switch s {
	case SortName:
		return "name"
	case SortPurchased:
		return "purchased"
	case SortExpiration:
		return "expiration"
	}
	return "created"
}

// Showing partitions items by archival state.
type Showing int

const (
	// ShowFresh displays non-archived items.
	ShowFresh Showing = iota
	// ShowConsumed displays consumed items.
	ShowConsumed
	// ShowSpoiled displays spoiled items.
	ShowSpoiled
)

// ParseShowing converts a string to a Showing. The empty string means fresh.
func ParseShowing(raw string) (Showing, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fresh":
		return ShowFresh, nil
	case "consumed":
		return ShowConsumed, nil
	case "spoiled":
		return ShowSpoiled, nil
	}
	return ShowFresh, fmt.Errorf("view: unknown showing mode %q", raw)
}

func (s Showing) String() string {
	switch s {
	case ShowConsumed:
		return "consumed"
	case ShowSpoiled:
		return "spoiled"
	}
	return "fresh"
}

// Config is the full pipeline configuration for one view.
type Config struct {
	Presence       item.Presence
	AllFridges     bool
	Showing        Showing
	Sort           Sort
	Query          string
	SearchShowsAll bool
	HorizonDays    int
	SameDayExpired bool
}

// Counts aggregates item counts (summing Count, not cardinality) over the
// non-archived subset of a scope.
type Counts struct {
	Fresh    int
	Expiring int
	Expired  int
	Total    int
}

// Valid drops structurally empty placeholders: items with neither a name nor
// an id have no identity to track.
func Valid(items []item.Item) []item.Item {
	out := make([]item.Item, 0, len(items))
	for _, it := range items {
		if !it.Real() && it.ID == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Upsert merges it into items by (ID, FridgeID) identity: replace on match,
// append otherwise. Applying the same event twice therefore cannot duplicate
// an item. Items without an id cannot match and are appended.
func Upsert(items []item.Item, it item.Item) []item.Item {
	if it.ID != "" {
		for i := range items {
			if items[i].ID == it.ID && items[i].FridgeID == it.FridgeID {
				out := append([]item.Item(nil), items...)
				out[i] = it
				return out
			}
		}
	}
	return append(append([]item.Item(nil), items...), it)
}

// Remove drops the item matching it by (ID, FridgeID).
func Remove(items []item.Item, it item.Item) []item.Item {
	out := make([]item.Item, 0, len(items))
	for _, existing := range items {
		if existing.ID == it.ID && existing.FridgeID == it.FridgeID {
			continue
		}
		out = append(out, existing)
	}
	return out
}

// Visible runs scope filter, sort, showing filter, and search filter over the
// retained set, returning the displayed list.
func Visible(items []item.Item, cfg Config, today time.Time) []item.Item {
	scoped := make([]item.Item, 0, len(items))
	for _, it := range items {
		if it.Presence != cfg.Presence {
			continue
		}
		scoped = append(scoped, it)
	}

	SortItems(scoped, cfg.Sort)

	shown := scoped[:0]
	for _, it := range scoped {
		switch cfg.Showing {
		case ShowFresh:
			if it.Archived() {
				continue
			}
		case ShowConsumed:
			if !it.Consumed {
				continue
			}
		case ShowSpoiled:
			if !it.Spoiled {
				continue
			}
		}
		shown = append(shown, it)
	}

	return searchFilter(shown, cfg)
}

func searchFilter(items []item.Item, cfg Config) []item.Item {
	query := strings.ToLower(strings.TrimSpace(cfg.Query))
	if query == "" {
		if cfg.AllFridges && !cfg.SearchShowsAll {
			return []item.Item{}
		}
		return items
	}
	out := make([]item.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), query) {
			out = append(out, it)
		}
	}
	return out
}

// SortItems stably sorts items in place by the given mode. Comparisons on
// optional dates place missing dates after every present one; two missing
// dates keep their relative order.
func SortItems(items []item.Item, mode Sort) {
	sort.SliceStable(items, func(i, j int) bool {
		switch mode {
		case SortName:
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		case SortPurchased:
			return dateLess(items[i].Purchased, items[j].Purchased)
		case SortExpiration:
			return dateLess(items[i].Expires, items[j].Expires)
		default:
			return dateLess(items[i].Created, items[j].Created)
		}
	})
}

func dateLess(l, r item.Timestamp) bool {
	switch {
	case l.IsZero():
		return false
	case r.IsZero():
		return true
	default:
		return l.Before(r.Time)
	}
}

// Tally computes aggregate counts for the scope. Counts are only produced for
// the fresh view; other showing modes return nil. The Have side partitions
// non-archived items into fresh, expiring-soon, and expired; the Need side
// produces only a total.
func Tally(items []item.Item, cfg Config, today time.Time) *Counts {
	if cfg.Showing != ShowFresh {
		return nil
	}
	counts := &Counts{}
	for _, it := range items {
		if it.Presence != cfg.Presence || it.Archived() {
			continue
		}
		counts.Total += it.Count
		if cfg.Presence != item.Have {
			continue
		}
		switch {
		case it.Expired(today, cfg.SameDayExpired):
			counts.Expired += it.Count
		case it.ExpiringSoon(today, cfg.HorizonDays, cfg.SameDayExpired):
			counts.Expiring += it.Count
		default:
			counts.Fresh += it.Count
		}
	}
	return counts
}
