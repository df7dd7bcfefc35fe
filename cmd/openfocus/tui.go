package main

import (
	"github.com/spf13/cobra"

	"github.com/baiirun/openfocus/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [perspective]",
	Short: "Browse and edit tasks interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		perspective := "inbox"
		if len(args) == 1 {
			perspective = args[0]
		}

		database, release, err := openDB()
		if err != nil {
			return err
		}
		defer release()

		return tui.Run(database, perspective)
	},
}
