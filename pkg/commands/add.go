package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"tableflip.dev/pantry/pkg/commands/options"
	"tableflip.dev/pantry/pkg/runner/add"
	"tableflip.dev/pantry/pkg/store"
)

func addAdd(topLevel *cobra.Command) {
	fo := &options.FridgeOptions{}
	io := &options.ItemOptions{}
	ido := &options.IDOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Example: `
pantry add milk --expires 9/12
pantry add eggs --count 12 --fridge garage
pantry add coffee --need
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Load(nil)
			if err != nil {
				return err
			}
			expires, err := io.GetExpires()
			if err != nil {
				return err
			}
			s := add.Add{
				ShowID:      ido.ShowID,
				Fridge:      fo.Fridge,
				Name:        strings.Join(args, " "),
				Count:       io.Count,
				Category:    io.Category,
				Expires:     expires,
				Need:        io.Need,
				Persistence: p,
			}
			err = s.Do(context.Background())
			return oo.HandleError(err)
		},
	}

	options.AddFridgeArgs(cmd, fo)
	options.AddItemArgs(cmd, io)
	options.AddShowIDArgs(cmd, ido)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
