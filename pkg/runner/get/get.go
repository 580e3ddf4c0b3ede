package get

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/prefs"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
	"tableflip.dev/pantry/pkg/view"
)

type Get struct {
	ShowID bool

	Fridge      string
	ListFridges bool

	Presence item.Presence
	Sort     view.Sort
	Showing  view.Showing
	Query    string

	Persistence store.Persistence
	Preferences *prefs.Prefs
}

func (n *Get) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not get, no persistence")
	}

	pp := printers.PrettyPrint{ShowID: n.ShowID}
	fmt.Println("")

	if n.ListFridges {
		all, err := n.Persistence.Fridges(ctx)
		if err != nil {
			return err
		}
		pp.TitleWithCount("Fridges", len(all))
		pp.Fridges(all...)
		return nil
	}

	vals := prefs.Defaults()
	if n.Preferences != nil {
		vals = n.Preferences.Current()
	}
	pp.HorizonDays = vals.HorizonDays
	pp.SameDayExpired = vals.SameDayExpired

	scope, title, err := n.scope(ctx)
	if err != nil {
		return err
	}

	all, err := n.Persistence.Items(ctx, scope, true)
	if err != nil {
		return err
	}

	cfg := view.Config{
		Presence:       n.Presence,
		AllFridges:     scope.All(),
		Showing:        n.Showing,
		Sort:           n.Sort,
		Query:          n.Query,
		SearchShowsAll: vals.SearchShowsAll,
		HorizonDays:    vals.HorizonDays,
		SameDayExpired: vals.SameDayExpired,
	}
	today := time.Now()
	valid := view.Valid(all)
	shown := view.Visible(valid, cfg, today)

	pp.TitleWithCount(title, len(shown))
	pp.Items(shown...)
	pp.Counts(view.Tally(valid, cfg, today))
	return nil
}

// scope maps the fridge flag onto a store scope. An empty fridge name means
// every fridge.
func (n *Get) scope(ctx context.Context) (store.Scope, string, error) {
	if n.Fridge == "" {
		return store.Scope{Presence: n.Presence}, "Everything", nil
	}
	all, err := n.Persistence.Fridges(ctx)
	if err != nil {
		return store.Scope{}, "", err
	}
	for _, f := range all {
		if f.Name == n.Fridge {
			return store.Scope{FridgeID: f.ID, Presence: n.Presence}, f.Name, nil
		}
	}
	return store.Scope{}, "", fmt.Errorf("get: unknown fridge %q", n.Fridge)
}
