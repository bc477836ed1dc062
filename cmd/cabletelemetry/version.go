package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cablecar.telemetry/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cabletelemetry %s\n", version.String())
	},
}
