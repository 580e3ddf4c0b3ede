package commands

import (
	"context"

	"github.com/spf13/cobra"
	"tableflip.dev/pantry/pkg/commands/options"
	"tableflip.dev/pantry/pkg/runner/consume"
	"tableflip.dev/pantry/pkg/store"
)

func addConsume(topLevel *cobra.Command) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "consume <id>",
		Short: "Mark an item consumed",
		Example: `
pantry consume 171dff69f8b99dca
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Load(nil)
			if err != nil {
				return err
			}
			s := consume.Consume{
				ID:          args[0],
				Persistence: p,
			}
			err = s.Do(context.Background())
			return oo.HandleError(err)
		},
	}

	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
