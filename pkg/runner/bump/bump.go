// Package bump provides the runner logic for increasing item counts.
package bump

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

// Bump increases an item's count by By.
type Bump struct {
	ID string
	By int

	Persistence store.Persistence
}

// Do executes the count increase for the configured item ID. Taps are
// debounced by the delegate; Close flushes the one batched write before the
// list is re-read.
func (n *Bump) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not bump, no persistence")
	}
	if n.By < 1 {
		n.By = 1
	}

	all, err := n.Persistence.Items(ctx, store.Scope{}, true)
	if err != nil {
		return err
	}

	var flushErr error
	d := app.NewDelegate(n.Persistence, bus.New())
	d.OnError = func(err error) { flushErr = err }

	fridgeID := ""
	for _, it := range all {
		if it.ID == n.ID {
			for i := 0; i < n.By; i++ {
				if it, err = d.IncreaseCount(ctx, it); err != nil {
					return err
				}
			}
			fridgeID = it.FridgeID
			break
		}
	}
	if fridgeID == "" {
		return fmt.Errorf("bump: no item with id %q", n.ID)
	}

	d.Close()
	if flushErr != nil {
		return flushErr
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
