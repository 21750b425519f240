package consent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sportsmed/internal/adapters/storage"
	"sportsmed/internal/domain/biometric"
	domain "sportsmed/internal/domain/consent"
)

const selectColumns = `SELECT id, user_id, consent_given, consent_date, metrics_allowed,
	data_sharing_allowed, revoked_at, created_at, updated_at FROM health_consent`

// SQLStore implements the consent Store interface over SQLite or Postgres.
type SQLStore struct {
	db SQLDB
}

// NewSQLStore creates a new consent store.
func NewSQLStore(db SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByUserID retrieves the single consent record of a user.
// PRE: userID is non-empty
// POST: Returns the record, or domain.ErrNotFound when the user has none
func (s *SQLStore) GetByUserID(ctx context.Context, userID string) (domain.HealthConsent, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE user_id = ?", userID)
	c, err := scanConsent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HealthConsent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.HealthConsent{}, fmt.Errorf("get consent for %s: %w", userID, err)
	}
	return c, nil
}

// Upsert writes or overwrites the record keyed by user ID.
// PRE: c has been validated
// POST: Exactly one row exists for c.UserID; the original id and created_at are kept
func (s *SQLStore) Upsert(ctx context.Context, c domain.HealthConsent) error {
	metrics, err := json.Marshal(metricsOrEmpty(c.MetricsAllowed))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO health_consent (id, user_id, consent_given, consent_date, metrics_allowed,
			data_sharing_allowed, revoked_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   consent_given=excluded.consent_given,
		   consent_date=excluded.consent_date,
		   metrics_allowed=excluded.metrics_allowed,
		   data_sharing_allowed=excluded.data_sharing_allowed,
		   revoked_at=excluded.revoked_at,
		   updated_at=excluded.updated_at`,
		c.ID, c.UserID, c.ConsentGiven, storage.NullTime(c.ConsentDate), string(metrics),
		c.DataSharingAllowed, storage.NullTime(c.RevokedAt),
		storage.FormatTime(c.CreatedAt), storage.FormatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert consent for %s: %w", c.UserID, err)
	}
	return nil
}

func metricsOrEmpty(m []biometric.MetricType) []biometric.MetricType {
	if m == nil {
		return []biometric.MetricType{}
	}
	return m
}

// scanConsent scans one row via the given scan function.
func scanConsent(scan func(dest ...any) error) (domain.HealthConsent, error) {
	var c domain.HealthConsent
	var consentDate, revokedAt sql.NullString
	var metrics, createdAt, updatedAt string
	err := scan(&c.ID, &c.UserID, &c.ConsentGiven, &consentDate, &metrics,
		&c.DataSharingAllowed, &revokedAt, &createdAt, &updatedAt)
	if err != nil {
		return domain.HealthConsent{}, err
	}
	if err := json.Unmarshal([]byte(metrics), &c.MetricsAllowed); err != nil {
		return domain.HealthConsent{}, fmt.Errorf("decode metrics_allowed: %w", err)
	}
	if c.ConsentDate, err = storage.TimePtr(consentDate); err != nil {
		return domain.HealthConsent{}, err
	}
	if c.RevokedAt, err = storage.TimePtr(revokedAt); err != nil {
		return domain.HealthConsent{}, err
	}
	if c.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.HealthConsent{}, err
	}
	if c.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return domain.HealthConsent{}, err
	}
	return c, nil
}
