package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sportsmed/internal/adapters/mcp"
	"sportsmed/internal/adapters/storage"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol (MCP) server. It communicates over
stdin/stdout and only reads: every biometric query honours the user's consent.

AVAILABLE TOOLS:

  list_metric_types   Every trackable metric with unit and normal range
  get_consent         A user's consent record
  list_biometrics     Recent observations of consented metrics
  latest_metric       Most recent value of one metric

AVAILABLE RESOURCES:

  sportsmed://catalog   Metric catalog grouped for display`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := a.openDB(ctx, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := storage.MigrateDB(ctx, db, db.Dialect()); err != nil {
				return err
			}

			stores := newStores(db)
			server := mcp.NewServer(mcp.Deps{
				Accounts:   stores.AccountStore,
				Consents:   stores.ConsentStore,
				Biometrics: stores.BiometricStore,
			}, version)
			return server.Serve(ctx)
		},
	}
}
