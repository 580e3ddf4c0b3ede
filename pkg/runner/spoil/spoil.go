// Package spoil provides the runner logic for marking items spoiled.
package spoil

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

// Spoil marks an item as spoiled.
type Spoil struct {
	ID          string
	Persistence store.Persistence
}

// Do executes the spoil operation for the configured item ID.
func (n *Spoil) Do(ctx context.Context) error {
	pp := printers.PrettyPrint{ShowID: true}

	if n.Persistence == nil {
		return errors.New("can not spoil, no persistence")
	}

	all, err := n.Persistence.Items(ctx, store.Scope{}, true)
	if err != nil {
		return err
	}

	d := app.NewDelegate(n.Persistence, bus.New())
	fridgeID := ""
	for _, it := range all {
		if it.ID == n.ID {
			if _, err := d.Spoil(ctx, it); err != nil {
				return err
			}
			fridgeID = it.FridgeID
			break
		}
	}
	if fridgeID == "" {
		return fmt.Errorf("spoil: no item with id %q", n.ID)
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
