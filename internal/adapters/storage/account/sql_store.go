package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sportsmed/internal/adapters/storage"
	domain "sportsmed/internal/domain/account"
)

const selectColumns = `SELECT id, email, first_name, last_name, user_type, password_hash,
	created_at, failed_logins, locked_until, staff_approved FROM account`

// SQLStore implements Store using SQLite or Postgres.
type SQLStore struct {
	db SQLDB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the account or domain.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.getOne(ctx, selectColumns+" WHERE id = ?", id)
}

// GetByEmail retrieves an Account by its email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the account or domain.ErrNotFound
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.getOne(ctx, selectColumns+" WHERE email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLStore) getOne(ctx context.Context, query string, arg string) (domain.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, err
}

// Save persists an Account (insert or update).
// PRE: a has been validated
// POST: Account is persisted; a duplicate email on a different ID returns domain.ErrEmailTaken
func (s *SQLStore) Save(ctx context.Context, a domain.Account) error {
	var lockedUntil sql.NullString
	if !a.LockedUntil.IsZero() {
		lockedUntil = storage.NullTime(&a.LockedUntil)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (id, email, first_name, last_name, user_type, password_hash,
			created_at, failed_logins, locked_until, staff_approved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email, first_name=excluded.first_name, last_name=excluded.last_name,
		   user_type=excluded.user_type, password_hash=excluded.password_hash,
		   failed_logins=excluded.failed_logins, locked_until=excluded.locked_until,
		   staff_approved=excluded.staff_approved`,
		a.ID, strings.ToLower(a.Email), a.FirstName, a.LastName, a.UserType, a.PasswordHash,
		storage.FormatTime(a.CreatedAt), a.FailedLogins, lockedUntil, a.StaffApproved)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

// List returns accounts ordered by last then first name.
// PRE: none
// POST: Returns at most filter.Limit accounts when Limit > 0
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	query := selectColumns
	var args []any
	if filter.UserType != "" {
		query += " WHERE user_type = ?"
		args = append(args, filter.UserType)
	}
	query += " ORDER BY last_name, first_name, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Count returns the number of stored accounts.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&n)
	return n, err
}

func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var a domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.UserType, &a.PasswordHash,
		&createdAt, &a.FailedLogins, &lockedUntil, &a.StaffApproved)
	if err != nil {
		return domain.Account{}, err
	}
	if a.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Account{}, err
	}
	locked, err := storage.TimePtr(lockedUntil)
	if err != nil {
		return domain.Account{}, err
	}
	if locked != nil {
		a.LockedUntil = *locked
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
