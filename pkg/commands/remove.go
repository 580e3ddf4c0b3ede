package commands

import (
	"context"

	"github.com/spf13/cobra"
	"tableflip.dev/pantry/pkg/commands/options"
	"tableflip.dev/pantry/pkg/runner/remove"
	"tableflip.dev/pantry/pkg/store"
)

func addRemove(topLevel *cobra.Command) {
	fo := &options.FridgeOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove an item, a fridge, or everything",
		Example: `
pantry remove 171dff69f8b99dca
pantry remove --fridge garage
pantry remove --all
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Load(nil)
			if err != nil {
				return err
			}
			s := remove.Remove{
				AllFridges:  fo.All,
				Persistence: p,
			}
			if len(args) == 1 {
				s.ID = args[0]
			} else if cmd.Flags().Changed("fridge") {
				// The fridge flag has a default; only an explicit flag selects
				// a fridge for deletion.
				s.Fridge = fo.Fridge
			}
			err = s.Do(context.Background())
			return oo.HandleError(err)
		},
	}

	options.AddFridgeArgs(cmd, fo)
	options.AddAllFridgesArg(cmd, fo)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
