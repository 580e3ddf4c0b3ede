package options

import (
	"time"

	"github.com/spf13/cobra"
)

const (
	layoutISO      = "2006-1-2"
	layoutISOShort = "1/2"
)

// ItemOptions
type ItemOptions struct {
	Count         int
	Category      string
	ExpiresString string
	Need          bool
}

func AddItemArgs(cmd *cobra.Command, o *ItemOptions) {
	cmd.Flags().IntVarP(&o.Count, "count", "n", 1,
		"How many units to track.")
	cmd.Flags().StringVar(&o.Category, "category", "",
		"Specify the item category.")
	cmd.Flags().StringVar(&o.ExpiresString, "expires", "",
		`Specify an expiration date, example: --expires="2026-9-12" or --expires="9/12".`)
	cmd.Flags().BoolVar(&o.Need, "need", false,
		"Put the item on the shopping side instead of in the fridge.")
}

// GetExpires parses the expiration flag. A bare month/day is pushed into the
// future: an expiration date behind us was almost certainly meant for next
// year.
func (o *ItemOptions) GetExpires() (*time.Time, error) {
	if o.ExpiresString == "" {
		return nil, nil
	}
	t, err := time.Parse(layoutISO, o.ExpiresString)
	if err != nil {
		t, err = time.Parse(layoutISOShort, o.ExpiresString)
		if err != nil {
			return nil, err
		}
		t = t.AddDate(time.Now().Year(), 0, 0)
		if t.Before(time.Now()) {
			t = t.AddDate(1, 0, 0)
		}
	}
	return &t, nil
}
