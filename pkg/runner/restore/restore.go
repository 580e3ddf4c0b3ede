// Package restore provides the runner logic for moving archived items back
// to the fresh band.
package restore

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

// Restore clears an item's consumed and spoiled flags.
type Restore struct {
	ID          string
	Persistence store.Persistence
}

// Do executes the restore operation for the configured item ID.
func (n *Restore) Do(ctx context.Context) error {
	pp := printers.PrettyPrint{ShowID: true}

	if n.Persistence == nil {
		return errors.New("can not restore, no persistence")
	}

	all, err := n.Persistence.Items(ctx, store.Scope{}, true)
	if err != nil {
		return err
	}

	d := app.NewDelegate(n.Persistence, bus.New())
	fridgeID := ""
	for _, it := range all {
		if it.ID == n.ID {
			if _, err := d.Restore(ctx, it); err != nil {
				return err
			}
			fridgeID = it.FridgeID
			break
		}
	}
	if fridgeID == "" {
		return fmt.Errorf("restore: no item with id %q", n.ID)
	}

	f, err := n.Persistence.Fridge(ctx, fridgeID)
	if err != nil {
		return err
	}
	rest, err := n.Persistence.Items(ctx, store.Scope{FridgeID: fridgeID}, true)
	if err != nil {
		return err
	}

	fmt.Println("")
	pp.Title(f.Name)
	pp.Items(rest...)
	return nil
}
