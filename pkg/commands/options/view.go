package options

import (
	"github.com/spf13/cobra"
)

// ViewOptions
type ViewOptions struct {
	Sort    string
	Showing string
	Query   string
	Need    bool
}

func AddViewArgs(cmd *cobra.Command, o *ViewOptions) {
	cmd.Flags().StringVarP(&o.Sort, "sort", "s", "created",
		"Sort order. One of 'created', 'name', 'purchased' or 'expiration'.")
	cmd.Flags().StringVar(&o.Showing, "showing", "fresh",
		"Which archive band to show. One of 'fresh', 'consumed' or 'spoiled'.")
	cmd.Flags().StringVarP(&o.Query, "query", "q", "",
		"Filter items by a case-insensitive name substring.")
	cmd.Flags().BoolVar(&o.Need, "need", false,
		"Show the shopping side instead of the fridge side.")
}
