package add

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/bus"
	"tableflip.dev/pantry/pkg/fridge"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/printers"
	"tableflip.dev/pantry/pkg/store"
)

type Add struct {
	ShowID bool

	Fridge   string
	Name     string
	Count    int
	Category string
	Expires  *time.Time
	Need     bool

	Persistence store.Persistence
}

func (n *Add) Do(ctx context.Context) error {
	if n.Persistence == nil {
		return errors.New("can not add, no persistence")
	}

	f, err := n.fridge(ctx)
	if err != nil {
		return err
	}

	it := item.New(f.ID, n.Name)
	if n.Count > 0 {
		it.Count = n.Count
	}
	it.CategoryID = n.Category
	if n.Expires != nil {
		it.Expires = item.Timestamp{Time: *n.Expires}
	}
	if n.Need {
		it.Presence = item.Need
	} else {
		it.Purchased = item.Timestamp{Time: time.Now()}
	}

	d := app.NewDelegate(n.Persistence, bus.New())
	if _, err := d.Add(ctx, it); err != nil {
		return err
	}

	all, err := n.Persistence.Items(ctx, store.Scope{FridgeID: f.ID}, false)
	if err != nil {
		return err
	}

	pp := printers.PrettyPrint{ShowID: n.ShowID}
	fmt.Println("")
	pp.Title(f.Name)
	pp.Items(all...)
	return nil
}

// fridge resolves the named fridge, creating it on first use.
func (n *Add) fridge(ctx context.Context) (fridge.Fridge, error) {
	all, err := n.Persistence.Fridges(ctx)
	if err != nil {
		return fridge.Fridge{}, err
	}
	for _, f := range all {
		if f.Name == n.Fridge {
			return f, nil
		}
	}
	f, _, err := n.Persistence.UpsertFridge(ctx, fridge.New(n.Fridge))
	return f, err
}
