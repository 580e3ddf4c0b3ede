package commands

import (
	"context"

	"github.com/spf13/cobra"
	"tableflip.dev/pantry/pkg/commands/options"
	"tableflip.dev/pantry/pkg/runner/bump"
	"tableflip.dev/pantry/pkg/store"
)

func addBump(topLevel *cobra.Command) {
	by := 1
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "bump <id>",
		Short: "Increase an item's count",
		Example: `
pantry bump 171dff69f8b99dca
pantry bump 171dff69f8b99dca --by 3
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Load(nil)
			if err != nil {
				return err
			}
			s := bump.Bump{
				ID:          args[0],
				By:          by,
				Persistence: p,
			}
			err = s.Do(context.Background())
			return oo.HandleError(err)
		},
	}

	cmd.Flags().IntVar(&by, "by", 1, "How many units to add.")
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
