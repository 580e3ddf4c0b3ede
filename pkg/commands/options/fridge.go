// Package options defines shared flag helpers for CLI commands.
package options

import (
	"github.com/spf13/cobra"
)

// FridgeOptions captures common fridge selection flags for commands.
type FridgeOptions struct {
	Fridge string
	All    bool
	List   bool
}

// AddFridgeArgs wires fridge-related flags on the provided command.
func AddFridgeArgs(cmd *cobra.Command, o *FridgeOptions) {
	cmd.Flags().StringVarP(&o.Fridge, "fridge", "f", "kitchen",
		"Specify the fridge by name.")
}

// AddAllFridgesArg registers flags that operate on all fridges.
func AddAllFridgesArg(cmd *cobra.Command, o *FridgeOptions) {
	cmd.Flags().BoolVar(&o.All, "all", false,
		"Specify all fridges.")
	cmd.Flags().BoolVar(&o.List, "list", false,
		"List all fridges.")
}
