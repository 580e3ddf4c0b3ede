// Package drop provides the runner logic for decreasing item counts.
package drop

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/prefs"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

// Drop decreases an item's count by By. Under the zero-count policy a drop
// past zero consumes the item instead of storing a zero count.
type Drop struct {
	ID string
	By int

	Persistence store.Persistence
	Preferences *prefs.Prefs
}

// Do executes the count decrease for the configured item ID.
func (n *Drop) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not drop, no persistence")
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
	d.ZeroCountConsumes = func() bool {
		if n.Preferences == nil {
			return prefs.Defaults().ZeroCountConsumes
		}
		return n.Preferences.Current().ZeroCountConsumes
	}

	fridgeID := ""
	for _, it := range all {
		if it.ID == n.ID {
			for i := 0; i < n.By; i++ {
				if it, err = d.DecreaseCount(ctx, it); err != nil {
					return err
				}
				if it.Archived() {
					break
				}
			}
			fridgeID = it.FridgeID
			break
		}
	}
	if fridgeID == "" {
		return fmt.Errorf("drop: no item with id %q", n.ID)
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
