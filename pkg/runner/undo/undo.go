// Package undo provides the runner logic for the quick re-add flow: the
// most recently archived item goes back onto the shopping side.
package undo

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

// Undo re-adds the last archived item as a need-side entry. With --id the
// selection is explicit instead of newest-first.
type Undo struct {
	ID          string
	Persistence store.Persistence
}

// Do executes the quick re-add.
func (n *Undo) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not undo, no persistence")
	}

	all, err := n.Persistence.Items(ctx, store.Scope{}, true)
	if err != nil {
		return err
	}

	src, ok := n.pick(all)
	if !ok {
		fmt.Println("nothing to undo")
		return nil
	}

	d := app.NewDelegate(n.Persistence, bus.New())
	again, err := d.AddAgain(ctx, src)
	if err != nil {
		return err
	}

	f, err := n.Persistence.Fridge(ctx, again.FridgeID)
	if err != nil {
		return err
	}
	rest, err := n.Persistence.Items(ctx, store.Scope{FridgeID: again.FridgeID}, true)
	if err != nil {
		return err
	}

	pp := printers.PrettyPrint{ShowID: true}
	fmt.Println("")
	pp.Title(f.Name)
	pp.Items(rest...)
	return nil
}

// pick chooses the archived item to re-add: an explicit ID when given,
// otherwise the newest archived item. Items come back sorted oldest first.
func (n *Undo) pick(all []item.Item) (item.Item, bool) {
	if n.ID != "" {
		for _, it := range all {
			if it.ID == n.ID && it.Archived() {
				return it, true
			}
		}
		return item.Item{}, false
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Archived() {
			return all[i], true
		}
	}
	return item.Item{}, false
}
