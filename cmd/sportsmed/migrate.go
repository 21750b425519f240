package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sportsmed/internal/adapters/storage"
)

func newMigrateCmd(a *app) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			before, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			latest := storage.LatestSchemaVersion()
			out := cmd.OutOrStdout()
			if statusOnly {
				color.New(color.FgCyan).Fprintf(out, "schema version %d of %d (%s)\n", before, latest, db.Dialect())
				return nil
			}
			if before == latest {
				color.New(color.FgGreen).Fprintf(out, "schema is up to date (version %d)\n", latest)
				return nil
			}
			if err := storage.MigrateDB(ctx, db, db.Dialect()); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "migrated schema from version %d to %d\n", before, latest)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "print the schema version without migrating")
	return cmd
}
