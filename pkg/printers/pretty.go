package printers

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"tableflip.dev/pantry/pkg/fridge"
	"tableflip.dev/pantry/pkg/glyph"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/view"
)

type PrettyPrint struct {
	ShowID         bool
	HorizonDays    int
	SameDayExpired bool

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time
}

var (
	spacing = strings.Repeat(" ", len("171dff69f8b99dca  "))
)

func (pp *PrettyPrint) NewLine() {
	fmt.Println("")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Println(title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Print(title)
	_, _ = c.Printf(" - %d", count)

	switch count {
	case 1:
		_, _ = c.Println(" item")
	default:
		_, _ = c.Println(" items")
	}
}

func (pp *PrettyPrint) Items(items ...item.Item) {
	if len(items) == 0 {
		f := color.New(color.Faint, color.Italic)
		if pp.ShowID {
			_, _ = f.Print(spacing)
		}
		_, _ = f.Print(" none\n\n")
		return
	}

	t := color.New()
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)

	for _, it := range items {
		if pp.ShowID {
			_, _ = y.Print(it.ID)
			_, _ = y.Print(strings.Repeat(" ", len(spacing)-len(it.ID)))
		}
		_, _ = t.Printf("%s %s\n", pp.status(it), pp.line(it))
	}
	_, _ = t.Println("")
}

func (pp *PrettyPrint) Fridges(fridges ...fridge.Fridge) {
	if len(fridges) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Print(" none\n\n")
		return
	}

	t := color.New()
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)

	for _, f := range fridges {
		if pp.ShowID {
			_, _ = y.Print(f.ID)
			_, _ = y.Print(strings.Repeat(" ", len(spacing)-len(f.ID)))
		}
		_, _ = t.Println(f.Name)
	}
	_, _ = t.Println("")
}

// Counts renders the aggregate table for a fresh view. A nil Counts prints
// nothing; the aggregate only exists for the fresh showing mode.
func (pp *PrettyPrint) Counts(c *view.Counts) {
	if c == nil {
		return
	}

	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Fresh"), bold.Sprint("Expiring"), bold.Sprint("Expired"), bold.Sprint("Total"))
	tbl.AddRow(
		fmt.Sprintf("%d", c.Fresh),
		color.YellowString("%d", c.Expiring),
		color.RedString("%d", c.Expired),
		fmt.Sprintf("%d", c.Total),
	)

	_, _ = fmt.Fprintln(color.Output, tbl)
	_, _ = fmt.Fprintln(color.Output, "")
}

func (pp *PrettyPrint) line(it item.Item) string {
	name := it.Name
	if it.Archived() {
		name = glyph.Strike(name)
	}

	parts := []string{name}
	if it.Count != 1 {
		parts = append(parts, color.New(color.Faint).Sprintf("x%d", it.Count))
	}
	if !it.Expires.IsZero() {
		date := it.Expires.Format("2006-01-02")
		switch pp.status(it) {
		case glyph.Expired:
			parts = append(parts, color.RedString(date))
		case glyph.Expiring:
			parts = append(parts, color.YellowString(date))
		default:
			parts = append(parts, color.New(color.Faint).Sprint(date))
		}
	}
	return strings.Join(parts, " ")
}

func (pp *PrettyPrint) status(it item.Item) glyph.Status {
	switch {
	case it.Consumed:
		return glyph.Consumed
	case it.Spoiled:
		return glyph.Spoiled
	case it.Presence == item.Need:
		return glyph.Needed
	}

	now := time.Now
	if pp.Now != nil {
		now = pp.Now
	}
	today := now()

	switch {
	case it.Expired(today, pp.SameDayExpired):
		return glyph.Expired
	case it.ExpiringSoon(today, pp.HorizonDays, pp.SameDayExpired):
		return glyph.Expiring
	}
	return glyph.Fresh
}
