package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Migration is one forward-only schema step with per-dialect DDL.
type Migration struct {
	Version  int
	Name     string
	SQLite   string
	Postgres string
}

// Migrations lists every schema step in version order.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "accounts",
		SQLite: `
		CREATE TABLE IF NOT EXISTS account (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			user_type TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			failed_logins INTEGER NOT NULL DEFAULT 0,
			locked_until TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_account_user_type ON account(user_type);`,
		Postgres: `
		CREATE TABLE IF NOT EXISTS account (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			user_type TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			failed_logins INTEGER NOT NULL DEFAULT 0,
			locked_until TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_account_user_type ON account(user_type);`,
	},
	{
		Version: 2,
		Name:    "health_consent",
		SQLite: `
		CREATE TABLE IF NOT EXISTS health_consent (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			consent_given INTEGER NOT NULL DEFAULT 0,
			consent_date TEXT,
			metrics_allowed TEXT NOT NULL DEFAULT '[]',
			data_sharing_allowed INTEGER NOT NULL DEFAULT 0,
			revoked_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		Postgres: `
		CREATE TABLE IF NOT EXISTS health_consent (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			consent_given BOOLEAN NOT NULL DEFAULT FALSE,
			consent_date TEXT,
			metrics_allowed TEXT NOT NULL DEFAULT '[]',
			data_sharing_allowed BOOLEAN NOT NULL DEFAULT FALSE,
			revoked_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	},
	{
		Version: 3,
		Name:    "biometric_data",
		SQLite: `
		CREATE TABLE IF NOT EXISTS biometric_data (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			value REAL NOT NULL,
			unit TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			device_type TEXT,
			device_model TEXT,
			metadata TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_biometric_user_recorded ON biometric_data(user_id, recorded_at DESC);`,
		Postgres: `
		CREATE TABLE IF NOT EXISTS biometric_data (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			unit TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			device_type TEXT,
			device_model TEXT,
			metadata TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_biometric_user_recorded ON biometric_data(user_id, recorded_at DESC);`,
	},
	{
		Version: 4,
		Name:    "biometric_audit_log",
		SQLite: `
		CREATE TABLE IF NOT EXISTS biometric_audit_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '{}',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_user ON biometric_audit_log(user_id);`,
		Postgres: `
		CREATE TABLE IF NOT EXISTS biometric_audit_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			details JSONB NOT NULL DEFAULT '{}',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_user ON biometric_audit_log(user_id);`,
	},
	{
		Version:  5,
		Name:     "staff_approval",
		SQLite:   `ALTER TABLE account ADD COLUMN staff_approved INTEGER NOT NULL DEFAULT 0;`,
		Postgres: `ALTER TABLE account ADD COLUMN IF NOT EXISTS staff_approved BOOLEAN NOT NULL DEFAULT FALSE;`,
	},
}

// LatestSchemaVersion returns the version of the last migration.
func LatestSchemaVersion() int {
	if len(Migrations) == 0 {
		return 0
	}
	return Migrations[len(Migrations)-1].Version
}

// SchemaVersion returns the applied schema version, or 0 for a fresh database.
// PRE: db is reachable
// POST: Returns the highest recorded version
func SchemaVersion(ctx context.Context, db SQLDB) (int, error) {
	var v sql.NullInt64
	err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&v)
	if err != nil {
		// A missing table means nothing has been applied yet.
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, err
	}
	return int(v.Int64), nil
}

// MigrateDB applies every pending migration in order.
// PRE: db is reachable; dialect matches the database
// POST: SchemaVersion(db) == LatestSchemaVersion()
// INVARIANT: Applied migrations are never re-run
func MigrateDB(ctx context.Context, db SQLDB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	record := "INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)"
	if dialect == DialectPostgres {
		record = Rebind(record)
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		ddl := m.SQLite
		if dialect == DialectPostgres {
			ddl = m.Postgres
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := db.ExecContext(ctx, record, m.Version, m.Name, FormatTime(time.Now())); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		slog.Info("schema_migrated", "version", m.Version, "name", m.Name, "dialect", string(dialect))
	}
	return nil
}

func isMissingTable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "does not exist")
}
