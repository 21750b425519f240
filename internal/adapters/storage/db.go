package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"sportsmed/internal/adapters/http/perf"
)

// Dialect selects SQL syntax differences between the supported databases.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// sqlitePragmas are appended to file DSNs: WAL, busy timeout, foreign keys.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// timeLayout is fixed-width so that TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Options configures Connect.
type Options struct {
	Driver         string
	DSN            string
	MaxOpenConns   int
	SlowQueryMs    int
	ConnectTimeout time.Duration
	Collector      *perf.Collector
}

// ParseDialect maps a driver name to a Dialect.
// PRE: none
// POST: Returns an error for unsupported drivers
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// SQLiteDSN adds the standard pragmas to a SQLite path.
// In-memory and already-parameterised DSNs are returned unchanged.
func SQLiteDSN(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?" + sqlitePragmas
}

// Connect opens, pings and instruments the configured database.
// PRE: opts.Driver is sqlite or postgres
// POST: Returns a TimedDB whose placeholders match the dialect
func Connect(ctx context.Context, opts Options) (*TimedDB, error) {
	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}

	driverName, dsn := "sqlite", SQLiteDSN(opts.DSN)
	if dialect == DialectPostgres {
		driverName, dsn = "postgres", opts.DSN
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	tdb := NewTimedDB(db, opts.Collector).WithDialect(dialect)
	if opts.SlowQueryMs > 0 {
		tdb = tdb.WithSlowQueryThreshold(opts.SlowQueryMs)
	}
	return tdb, nil
}

// FormatTime renders t in UTC with the fixed-width storage layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a stored timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// NullTime formats an optional timestamp for a nullable column.
func NullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// TimePtr parses a nullable column into an optional timestamp.
func TimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := ParseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
