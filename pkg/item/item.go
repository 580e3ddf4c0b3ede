// Package item defines the grocery item domain model and its derived
// predicates. Everything here is pure data: predicates are total functions
// with no side effects.
package item

import (
	"fmt"
	"strings"
	"time"
)

// Presence says whether an item is on the shopping side (need) or already
// owned (have).
type Presence string

const (
	// Need marks an item that still has to be bought.
	Need Presence = "need"
	// Have marks an item currently in the fridge.
	Have Presence = "have"
)

// ParsePresence converts a string to a Presence or returns an error for
// unknown values. The empty string defaults to Have.
func ParsePresence(raw string) (Presence, error) {
	p := Presence(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case "":
		return Have, nil
	case Need, Have:
		return p, nil
	}
	return Have, fmt.Errorf("item: unknown presence %q", raw)
}

// Flip returns the opposite presence.
func (p Presence) Flip() Presence {
	if p == Need {
		return Have
	}
	return Need
}

func (p Presence) String() string {
	return string(p)
}

// New creates an item in the given fridge with the creation time stamped.
func New(fridgeID, name string) Item {
	return Item{
		FridgeID: fridgeID,
		Name:     name,
		Count:    1,
		Presence: Have,
		Created:  Timestamp{Time: time.Now()},
	}
}

// Item is a single trackable grocery good belonging to a fridge.
type Item struct {
	ID         string    `json:"id,omitempty"`
	FridgeID   string    `json:"fridge"`
	Name       string    `json:"name,omitempty"`
	Count      int       `json:"count"`
	Presence   Presence  `json:"presence"`
	CategoryID string    `json:"category,omitempty"`
	Created    Timestamp `json:"created"`
	Purchased  Timestamp `json:"purchased,omitempty"`
	Expires    Timestamp `json:"expires,omitempty"`
	Consumed   bool      `json:"consumed,omitempty"`
	Spoiled    bool      `json:"spoiled,omitempty"`
}

// Real reports whether the item has a usable name and is therefore eligible
// for persistence. Items that are not real are transient placeholders.
func (i Item) Real() bool {
	return strings.TrimSpace(i.Name) != ""
}

// Archived reports whether the item left the fresh view.
func (i Item) Archived() bool {
	return i.Consumed || i.Spoiled
}

// Expired reports whether the item is past its expiration date. Items without
// an expiration date never expire. sameDay controls whether an item expiring
// today already counts as expired.
func (i Item) Expired(today time.Time, sameDay bool) bool {
	if i.Expires.IsZero() {
		return false
	}
	if i.Expires.SameDay(today) {
		return sameDay
	}
	return i.Expires.Before(today)
}

// ExpiringSoon reports whether the item expires within the given horizon of
// days from today, excluding items that are already expired.
func (i Item) ExpiringSoon(today time.Time, horizonDays int, sameDay bool) bool {
	if i.Expires.IsZero() || i.Expired(today, sameDay) {
		return false
	}
	horizon := today.AddDate(0, 0, horizonDays)
	return i.Expires.Before(horizon) || i.Expires.SameDay(horizon)
}

func (i Item) String() string {
	return fmt.Sprintf("%s x%d (%s)", i.Name, i.Count, i.Presence)
}
