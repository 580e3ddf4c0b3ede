package state

import (
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/view"
)

// Intent is a presentation-layer request for a state transition. Index
// fields refer to positions in the most recently published Displayed list.
type Intent interface {
	isIntent()
}

// Refresh re-queries the store. Force bypasses any read caching.
type Refresh struct{ Force bool }

// Consume archives the displayed item at Index as consumed.
type Consume struct{ Index int }

// Spoil archives the displayed item at Index as spoiled.
type Spoil struct{ Index int }

// Restore clears the archival flags of the displayed item at Index.
type Restore struct{ Index int }

// Delete removes the displayed item at Index, offering undo.
type Delete struct{ Index int }

// IncreaseCount bumps the count of the displayed item at Index.
type IncreaseCount struct{ Index int }

// DecreaseCount lowers the count of the displayed item at Index.
type DecreaseCount struct{ Index int }

// FlipPresence toggles the displayed item at Index between need and have.
type FlipPresence struct{ Index int }

// Undo restores the item currently held in the undo slot.
type Undo struct{}

// ConfirmDelete dismisses the undo offer without restoring.
type ConfirmDelete struct{}

// AddAgain creates a need-side copy of the given item (name, count, and
// category only).
type AddAgain struct{ Item item.Item }

// SetSearch replaces the search query.
type SetSearch struct{ Query string }

// SetSort replaces the sort mode.
type SetSort struct{ Mode view.Sort }

// SetShowing replaces the archival partition being displayed.
type SetShowing struct{ Mode view.Showing }

func (Refresh) isIntent()       {}
func (Consume) isIntent()       {}
func (Spoil) isIntent()         {}
func (Restore) isIntent()       {}
func (Delete) isIntent()        {}
func (IncreaseCount) isIntent() {}
func (DecreaseCount) isIntent() {}
func (FlipPresence) isIntent()  {}
func (Undo) isIntent()          {}
func (ConfirmDelete) isIntent() {}
func (AddAgain) isIntent()      {}
func (SetSearch) isIntent()     {}
func (SetSort) isIntent()       {}
func (SetShowing) isIntent()    {}
