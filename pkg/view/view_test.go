package view

import (
	"testing"
	"time"

	"tableflip.dev/pantry/pkg/item"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func stamp(y int, m time.Month, d int) item.Timestamp {
	return item.Timestamp{Time: date(y, m, d)}
}

func have(id, name string) item.Item {
	return item.Item{ID: id, FridgeID: "f1", Name: name, Count: 1, Presence: item.Have}
}

func TestValidDropsPlaceholders(t *testing.T) {
	items := []item.Item{
		have("a", "milk"),
		{FridgeID: "f1"},
		{ID: "b", FridgeID: "f1"},
	}
	out := Valid(items)
	if len(out) != 2 {
		t.Fatalf("expected 2 valid items, got %d", len(out))
	}
}

func TestUpsertReplacesByIdentity(t *testing.T) {
	items := []item.Item{have("a", "milk"), have("b", "eggs")}

	changed := have("a", "milk")
	changed.Count = 3
	out := Upsert(items, changed)
	if len(out) != 2 {
		t.Fatalf("expected replace, got %d items", len(out))
	}
	if out[0].Count != 3 {
		t.Fatalf("expected count 3 after upsert, got %d", out[0].Count)
	}

	// Applying the same event again must not duplicate.
	out = Upsert(out, changed)
	if len(out) != 2 {
		t.Fatalf("re-applied upsert duplicated: %d items", len(out))
	}
}

func TestUpsertSameIDDifferentFridge(t *testing.T) {
	items := []item.Item{have("a", "milk")}
	other := have("a", "milk")
	other.FridgeID = "f2"
	out := Upsert(items, other)
	if len(out) != 2 {
		t.Fatalf("same id in another fridge must append, got %d items", len(out))
	}
}

func TestRemove(t *testing.T) {
	items := []item.Item{have("a", "milk"), have("b", "eggs")}
	out := Remove(items, have("a", "milk"))
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("expected only b to remain, got %+v", out)
	}
}

func TestSortItemsByNameCaseInsensitive(t *testing.T) {
	items := []item.Item{have("a", "milk"), have("b", "Apples"), have("c", "eggs")}
	SortItems(items, SortName)
	if items[0].Name != "Apples" || items[1].Name != "eggs" || items[2].Name != "milk" {
		t.Fatalf("unexpected name order: %v %v %v", items[0].Name, items[1].Name, items[2].Name)
	}
}

func TestSortItemsMissingDatesLast(t *testing.T) {
	a := have("a", "milk")
	a.Expires = stamp(2026, time.September, 3)
	b := have("b", "rice")
	c := have("c", "eggs")
	c.Expires = stamp(2026, time.September, 1)

	items := []item.Item{a, b, c}
	SortItems(items, SortExpiration)
	if items[0].ID != "c" || items[1].ID != "a" || items[2].ID != "b" {
		t.Fatalf("expected c,a,b; got %s,%s,%s", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestVisibleShowingBands(t *testing.T) {
	fresh := have("a", "milk")
	eaten := have("b", "eggs")
	eaten.Consumed = true
	bad := have("c", "yogurt")
	bad.Spoiled = true
	items := []item.Item{fresh, eaten, bad}

	today := date(2026, time.September, 1)

	got := Visible(items, Config{Presence: item.Have, Showing: ShowFresh, SearchShowsAll: true}, today)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("fresh band wrong: %+v", got)
	}

	got = Visible(items, Config{Presence: item.Have, Showing: ShowConsumed, SearchShowsAll: true}, today)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("consumed band wrong: %+v", got)
	}

	got = Visible(items, Config{Presence: item.Have, Showing: ShowSpoiled, SearchShowsAll: true}, today)
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("spoiled band wrong: %+v", got)
	}
}

func TestVisibleScopesByPresence(t *testing.T) {
	fridgeSide := have("a", "milk")
	shoppingSide := have("b", "coffee")
	shoppingSide.Presence = item.Need

	got := Visible([]item.Item{fridgeSide, shoppingSide},
		Config{Presence: item.Need, Showing: ShowFresh, SearchShowsAll: true},
		date(2026, time.September, 1))
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only the shopping side, got %+v", got)
	}
}

func TestSearchFilterSubstring(t *testing.T) {
	items := []item.Item{have("a", "Milk"), have("b", "eggs"), have("c", "miso paste")}
	got := Visible(items,
		Config{Presence: item.Have, Showing: ShowFresh, Query: "mi", SearchShowsAll: true},
		date(2026, time.September, 1))
	if len(got) != 2 {
		t.Fatalf("expected milk and miso, got %+v", got)
	}
}

func TestEmptySearchAllFridgesPolicy(t *testing.T) {
	items := []item.Item{have("a", "milk")}
	today := date(2026, time.September, 1)

	got := Visible(items,
		Config{Presence: item.Have, Showing: ShowFresh, AllFridges: true, SearchShowsAll: false},
		today)
	if len(got) != 0 {
		t.Fatalf("empty query over all fridges must show nothing under the policy, got %+v", got)
	}

	got = Visible(items,
		Config{Presence: item.Have, Showing: ShowFresh, AllFridges: true, SearchShowsAll: true},
		today)
	if len(got) != 1 {
		t.Fatalf("empty query over all fridges must show everything by default, got %+v", got)
	}
}

func TestTallyPartitionsHaveSide(t *testing.T) {
	today := date(2026, time.September, 1)

	ok := have("a", "rice")
	ok.Count = 2

	soon := have("b", "milk")
	soon.Expires = stamp(2026, time.September, 2)

	gone := have("c", "yogurt")
	gone.Count = 3
	gone.Expires = stamp(2026, time.August, 20)

	eaten := have("d", "eggs")
	eaten.Consumed = true

	cfg := Config{Presence: item.Have, Showing: ShowFresh, HorizonDays: 3}
	counts := Tally([]item.Item{ok, soon, gone, eaten}, cfg, today)
	if counts == nil {
		t.Fatalf("expected counts for the fresh view")
	}
	if counts.Fresh != 2 || counts.Expiring != 1 || counts.Expired != 3 {
		t.Fatalf("unexpected partition: %+v", counts)
	}
	if counts.Total != 6 {
		t.Fatalf("archived items must not count toward total, got %d", counts.Total)
	}
}

func TestTallyNeedSideOnlyTotal(t *testing.T) {
	w := have("a", "coffee")
	w.Presence = item.Need
	w.Count = 4

	cfg := Config{Presence: item.Need, Showing: ShowFresh, HorizonDays: 3}
	counts := Tally([]item.Item{w}, cfg, date(2026, time.September, 1))
	if counts.Total != 4 || counts.Fresh != 0 || counts.Expiring != 0 || counts.Expired != 0 {
		t.Fatalf("need side must only produce a total, got %+v", counts)
	}
}

func TestTallyOnlyForFreshShowing(t *testing.T) {
	if Tally([]item.Item{have("a", "milk")}, Config{Presence: item.Have, Showing: ShowConsumed}, date(2026, time.September, 1)) != nil {
		t.Fatalf("tally must be nil outside the fresh view")
	}
}

func TestParseSortAndShowing(t *testing.T) {
	if _, err := ParseSort("expiration"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseSort("bogus"); err == nil {
		t.Fatalf("expected error for unknown sort")
	}
	if _, err := ParseShowing("spoiled"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseShowing("bogus"); err == nil {
		t.Fatalf("expected error for unknown showing")
	}
}
