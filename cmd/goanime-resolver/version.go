package main

import (
	"github.com/spf13/cobra"

	"github.com/alvarorichard/goanime-resolver/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and the slug cache driver",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.ShowVersion(cmd.OutOrStdout())
		},
	}
}
