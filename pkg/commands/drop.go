package commands

import (
	"context"

	"github.com/spf13/cobra"
	"tableflip.dev/pantry/pkg/commands/options"
	"tableflip.dev/pantry/pkg/runner/drop"
	"tableflip.dev/pantry/pkg/store"
)

func addDrop(topLevel *cobra.Command) {
	by := 1
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "drop <id>",
		Short: "Decrease an item's count",
		Example: `
pantry drop 171dff69f8b99dca
pantry drop 171dff69f8b99dca --by 3
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Load(nil)
			if err != nil {
				return err
			}
			s := drop.Drop{
				ID:          args[0],
				By:          by,
				Persistence: p,
				Preferences: loadPrefs(),
			}
			err = s.Do(context.Background())
			return oo.HandleError(err)
		},
	}

	cmd.Flags().IntVar(&by, "by", 1, "How many units to take.")
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
