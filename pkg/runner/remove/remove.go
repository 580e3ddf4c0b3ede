// Package remove provides the runner logic for deleting items and fridges.
package remove

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

// Remove deletes one item by ID, or a whole fridge by name, or every fridge
// at once.
type Remove struct {
	ID         string
	Fridge     string
	AllFridges bool

	Persistence store.Persistence
}

// Do executes the removal. Exactly one of ID, Fridge or AllFridges selects
// the target.
func (n *Remove) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not remove, no persistence")
	}

	switch {
	case n.AllFridges:
		return n.Persistence.DeleteAllFridges(ctx)
	case n.Fridge != "":
		return n.removeFridge(ctx)
	case n.ID != "":
		return n.removeItem(ctx)
	}
	return errors.New("remove: nothing selected")
}

func (n *Remove) removeItem(ctx context.Context) error {
	all, err := n.Persistence.Items(ctx, store.Scope{}, true)
	if err != nil {
		return err
	}

	d := app.NewDelegate(n.Persistence, bus.New())
	fridgeID := ""
	for _, it := range all {
		if it.ID == n.ID {
			if err := d.Delete(ctx, it); err != nil {
				return err
			}
			// One-shot invocation: the undo window closes when the process
			// exits, so the removal is final.
			d.ConfirmDelete()
			fridgeID = it.FridgeID
			break
		}
	}
	if fridgeID == "" {
		return fmt.Errorf("remove: no item with id %q", n.ID)
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

func (n *Remove) removeFridge(ctx context.Context) error {
	all, err := n.Persistence.Fridges(ctx)
	if err != nil {
		return err
	}
	for _, f := range all {
		if f.Name == n.Fridge {
			if _, err := n.Persistence.DeleteFridge(ctx, f, false); err != nil {
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("remove: unknown fridge %q", n.Fridge)
}
