// Package watch provides the runner logic for following a scope live.
package watch

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/prefs"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/state"
	"tableflip.dev/pantry/pkg/store"
)

// Watch opens a live state store over one scope and reprints the view on
// every published snapshot until the context is done.
type Watch struct {
	ShowID bool

	Fridge   string
	Presence item.Presence
	Query    string

	Persistence store.Persistence
	Preferences *prefs.Prefs
}

// Do follows the scope until ctx is canceled.
func (n *Watch) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not watch, no persistence")
	}

	scope, title, err := n.scope(ctx)
	if err != nil {
		return err
	}

	s := state.New(scope, n.Persistence, n.Preferences)
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer s.Close()

	if n.Query != "" {
		s.Dispatch(state.SetSearch{Query: n.Query})
	}

	vals := prefs.Defaults()
	if n.Preferences != nil {
		vals = n.Preferences.Current()
	}
	pp := printers.PrettyPrint{
		ShowID:         n.ShowID,
		HorizonDays:    vals.HorizonDays,
		SameDayExpired: vals.SameDayExpired,
	}

	for st := range s.Subscribe(ctx) {
		fmt.Println("")
		switch st.Phase {
		case state.PhaseLoading:
			pp.Title(title + " (loading)")
		case state.PhaseError:
			pp.Title(title + " (stale)")
		default:
			pp.Title(title)
		}
		pp.Items(st.Displayed...)
		pp.Counts(st.Counts)
		if st.Err != nil {
			fmt.Printf("error: %s\n", st.Err)
		}
	}
	return nil
}

func (n *Watch) scope(ctx context.Context) (store.Scope, string, error) {
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
	return store.Scope{}, "", fmt.Errorf("watch: unknown fridge %q", n.Fridge)
}
