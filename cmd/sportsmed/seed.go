package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sportsmed/internal/adapters/storage"
	"sportsmed/internal/application/orchestrators"
)

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo accounts, consents and observations",
		Long: `Load demo data. Without --file a demo athlete and a staff account are created,
with a consent record and a week of observations for the athlete.

Accounts whose e-mail already exists are skipped, so seeding twice is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture := orchestrators.DefaultSeedFixture()
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read fixture: %w", err)
				}
				if fixture, err = orchestrators.ParseSeedFixture(data); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			db, err := a.openDB(ctx, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := storage.MigrateDB(ctx, db, db.Dialect()); err != nil {
				return err
			}

			stores := newStores(db)
			res, err := orchestrators.ExecuteSeed(ctx, fixture, orchestrators.SeedDeps{
				AccountStore:   stores.AccountStore,
				ConsentStore:   stores.ConsentStore,
				BiometricStore: stores.BiometricStore,
				GenerateID:     generateID,
				Now:            time.Now,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "seeded %d account(s)", res.AccountsCreated)
			fmt.Fprintf(out, ", %d consent(s), %d observation(s)\n", res.ConsentsSaved, res.ObservationsSaved)
			if res.AccountsSkipped > 0 {
				color.New(color.FgYellow).Fprintf(out, "skipped %d existing account(s)\n", res.AccountsSkipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixture file")
	return cmd
}
