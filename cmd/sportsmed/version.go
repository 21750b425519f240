package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sportsmed/internal/adapters/storage"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			color.New(color.Bold).Fprintf(out, "sportsmed %s", version)
			fmt.Fprintf(out, " (schema %d)\n", storage.LatestSchemaVersion())
		},
	}
}
