// Package flip provides the runner logic for toggling an item between the
// shopping side and the fridge side.
package flip

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

// Flip toggles an item's presence. Flipping to Have stamps the purchase
// time; flipping back to Need clears it.
type Flip struct {
	ID          string
	Persistence store.Persistence
}

// Do executes the presence flip for the configured item ID.
func (n *Flip) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not flip, no persistence")
	}

	all, err := n.Persistence.Items(ctx, store.Scope{}, true)
	if err != nil {
		return err
	}

	d := app.NewDelegate(n.Persistence, bus.New())
	fridgeID := ""
	for _, it := range all {
		if it.ID == n.ID {
			if _, err := d.CommitPresence(ctx, it); err != nil {
				return err
			}
			fridgeID = it.FridgeID
			break
		}
	}
	if fridgeID == "" {
		return fmt.Errorf("flip: no item with id %q", n.ID)
	}

	f, err := n.Persistence.Fridge(ctx, fridgeID)
	if err != nil {
		return err
	}
	rest, err := n.Persistence.Items(ctx, store.Scope{FridgeID: fridgeID}, true)
	if err != nil {
		return err
	}

	pp := printers.PrettyPrint{ShowID: true}
	fmt.Println("")
	pp.Title(f.Name)
	pp.Items(rest...)
	return nil
}
