package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	web "sportsmed/internal/adapters/http"
	"sportsmed/internal/adapters/http/perf"
	"sportsmed/internal/adapters/storage"
	accountStore "sportsmed/internal/adapters/storage/account"
	auditStore "sportsmed/internal/adapters/storage/audit"
	biometricStore "sportsmed/internal/adapters/storage/biometric"
	consentStore "sportsmed/internal/adapters/storage/consent"
	"sportsmed/internal/config"
)

// app carries what every subcommand needs after the root has loaded config.
type app struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sportsmed",
		Short: "SportsMed Pro web app, database tools and MCP server",
		Long: `SportsMed Pro lets athletes consent to biometric tracking and see their
health metrics, and lets medical staff view the athletes who share them.

QUICK START:

  $ sportsmed migrate            # Create or upgrade the schema
  $ sportsmed seed               # Demo athlete + staff accounts and a week of data
  $ sportsmed staff approve EMAIL  # Let a registered staff member view shared data
  $ sportsmed serve              # http://localhost:8080

CONFIGURATION:

  Settings come from sportsmed.yaml (or --config), then SPORTSMED_* environment
  variables, then a .env file for anything still unset.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			slog.SetDefault(cfg.NewLogger(os.Stderr))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default sportsmed.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newStaffCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// openDB connects to the configured database.
// PRE: a.cfg has been loaded
func (a *app) openDB(ctx context.Context, collector *perf.Collector) (*storage.TimedDB, error) {
	return storage.Connect(ctx, storage.Options{
		Driver:       a.cfg.Database.Driver,
		DSN:          a.cfg.Database.DSN,
		MaxOpenConns: a.cfg.Database.MaxOpenConns,
		SlowQueryMs:  a.cfg.Database.SlowQueryMs,
		Collector:    collector,
	})
}

// newStores builds every SQL store over db.
func newStores(db *storage.TimedDB) *web.Stores {
	return &web.Stores{
		AccountStore:   accountStore.NewSQLStore(db),
		ConsentStore:   consentStore.NewSQLStore(db),
		BiometricStore: biometricStore.NewSQLStore(db),
		AuditStore:     auditStore.NewSQLStore(db),
	}
}

func generateID() string {
	return uuid.New().String()
}
