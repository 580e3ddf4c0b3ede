package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"tableflip.dev/pantry/pkg/commands/options"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/runner/watch"
	"tableflip.dev/pantry/pkg/store"
)

func addWatch(topLevel *cobra.Command) {
	fo := &options.FridgeOptions{}
	vo := &options.ViewOptions{}
	ido := &options.IDOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a fridge live, reprinting on every change",
		Example: `
pantry watch
pantry watch --fridge garage
pantry watch --need --query mi
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Load(nil)
			if err != nil {
				return err
			}
			presence := item.Have
			if vo.Need {
				presence = item.Need
			}
			s := watch.Watch{
				ShowID:      ido.ShowID,
				Fridge:      fo.Fridge,
				Presence:    presence,
				Query:       vo.Query,
				Persistence: p,
				Preferences: loadPrefs(),
			}
			if fo.All {
				s.Fridge = ""
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			err = s.Do(ctx)
			return oo.HandleError(err)
		},
	}

	options.AddFridgeArgs(cmd, fo)
	options.AddAllFridgesArg(cmd, fo)
	options.AddViewArgs(cmd, vo)
	options.AddShowIDArgs(cmd, ido)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
