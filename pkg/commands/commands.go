package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "pantry",
		Short: base.Wrap80("Track what is in the fridge and what to buy next."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addAdd(topLevel)
	addGet(topLevel)
	addConsume(topLevel)
	addSpoil(topLevel)
	addRestore(topLevel)
	addRemove(topLevel)
	addUndo(topLevel)
	addBump(topLevel)
	addDrop(topLevel)
	addFlip(topLevel)
	addWatch(topLevel)
	addVersion(topLevel)
}
