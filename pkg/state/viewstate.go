package state

import (
	"tableflip.dev/pantry/pkg/app"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/view"
)

// Phase is the lifecycle state of one scoped store.
type Phase int

const (
	// PhaseIdle means the store has not been bound yet.
	PhaseIdle Phase = iota
	// PhaseLoading means a fetch is in progress.
	PhaseLoading
	// PhaseReady means the last fetch succeeded and the view is live.
	PhaseReady
	// PhaseError means the last fetch failed; the previous good list stays
	// displayed.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	}
	return "idle"
}

// ViewState is the single immutable snapshot published to presentation
// layers after every accepted transition. Items is the full retained set
// after validity filtering; Displayed and Counts are derived by the view
// pipeline and never patched independently.
type ViewState struct {
	Phase     Phase
	Items     []item.Item
	Displayed []item.Item
	Query     string
	Sort      view.Sort
	Showing   view.Showing
	Presence  item.Presence
	Undo      *app.Undoable
	Counts    *view.Counts
	Loading   bool
	Err       error
}
