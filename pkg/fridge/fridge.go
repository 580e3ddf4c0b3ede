// Package fridge defines the named container that owns grocery items.
package fridge

import (
	"strings"
	"time"

	"tableflip.dev/pantry/pkg/item"
)

// New creates a fridge with the creation time stamped.
func New(name string) Fridge {
	return Fridge{
		Name:    name,
		Created: item.Timestamp{Time: time.Now()},
	}
}

// Fridge is a named collection of items, e.g. "kitchen" or "garage freezer".
type Fridge struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name,omitempty"`
	Created item.Timestamp `json:"created"`
}

// Real reports whether the fridge has a usable name and may be persisted.
func (f Fridge) Real() bool {
	return strings.TrimSpace(f.Name) != ""
}
