package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"tableflip.dev/pantry/pkg/commands/options"
	"tableflip.dev/pantry/pkg/item"
	"tableflip.dev/pantry/pkg/prefs"
	"tableflip.dev/pantry/pkg/runner/get"
	"tableflip.dev/pantry/pkg/store"
	"tableflip.dev/pantry/pkg/view"
)

func addGet(topLevel *cobra.Command) {
	fo := &options.FridgeOptions{}
	vo := &options.ViewOptions{}
	ido := &options.IDOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "get [query]",
		Short: "Get the items in view",
		Example: `
pantry get
pantry get mi
pantry get --fridge garage --sort expiration
pantry get --all --showing consumed
pantry get --need
pantry get --list
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Load(nil)
			if err != nil {
				return err
			}
			sort, err := view.ParseSort(vo.Sort)
			if err != nil {
				return err
			}
			showing, err := view.ParseShowing(vo.Showing)
			if err != nil {
				return err
			}
			presence := item.Have
			if vo.Need {
				presence = item.Need
			}
			s := get.Get{
				ShowID:      ido.ShowID,
				Fridge:      fo.Fridge,
				ListFridges: fo.List,
				Presence:    presence,
				Sort:        sort,
				Showing:     showing,
				Query:       strings.Join(args, " "),
				Persistence: p,
				Preferences: loadPrefs(),
			}
			if fo.All {
				s.Fridge = ""
			}
			if s.Query == "" {
				s.Query = vo.Query
			}
			err = s.Do(context.Background())
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

// loadPrefs is best-effort: preferences fall back to defaults rather than
// failing the command.
func loadPrefs() *prefs.Prefs {
	pr, err := prefs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pantry: preferences: %s\n", err)
		return nil
	}
	return pr
}
