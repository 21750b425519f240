package biometric

import (
	"context"
	"database/sql"
	"fmt"

	"sportsmed/internal/adapters/storage"
	domain "sportsmed/internal/domain/biometric"
)

// SQLStore implements Store using SQLite or Postgres.
type SQLStore struct {
	db SQLDB
}

// NewSQLStore creates a new biometric store.
func NewSQLStore(db SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// ListRecent returns a user's observations, newest first.
// PRE: userID is non-empty
// POST: Limit defaults to and is capped at domain.DefaultRecentLimit
func (s *SQLStore) ListRecent(ctx context.Context, userID string, filter ListFilter) ([]domain.Observation, error) {
	if userID == "" {
		return nil, domain.ErrEmptyUserID
	}
	limit := filter.Limit
	if limit <= 0 || limit > domain.DefaultRecentLimit {
		limit = domain.DefaultRecentLimit
	}

	query := `SELECT id, user_id, metric_type, value, unit, recorded_at,
		device_type, device_model, metadata, created_at
		FROM biometric_data WHERE user_id = ?`
	args := []any{userID}
	if filter.MetricType != "" {
		query += " AND metric_type = ?"
		args = append(args, string(filter.MetricType))
	}
	if filter.Since != nil {
		query += " AND recorded_at >= ?"
		args = append(args, storage.FormatTime(*filter.Since))
	}
	query += " ORDER BY recorded_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list biometrics for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		var o domain.Observation
		var metric, recordedAt, createdAt string
		var deviceType, deviceModel, metadata sql.NullString
		if err := rows.Scan(&o.ID, &o.UserID, &metric, &o.Value, &o.Unit, &recordedAt,
			&deviceType, &deviceModel, &metadata, &createdAt); err != nil {
			return nil, err
		}
		o.MetricType = domain.MetricType(metric)
		o.DeviceType = deviceType.String
		o.DeviceModel = deviceModel.String
		o.Metadata = metadata.String
		if o.RecordedAt, err = storage.ParseTime(recordedAt); err != nil {
			return nil, err
		}
		if o.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Save persists one observation.
// PRE: o has been validated
// POST: Observation is persisted (insert or update by ID)
func (s *SQLStore) Save(ctx context.Context, o domain.Observation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO biometric_data (id, user_id, metric_type, value, unit, recorded_at,
			device_type, device_model, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   metric_type=excluded.metric_type, value=excluded.value, unit=excluded.unit,
		   recorded_at=excluded.recorded_at, device_type=excluded.device_type,
		   device_model=excluded.device_model, metadata=excluded.metadata`,
		o.ID, o.UserID, string(o.MetricType), o.Value, o.Unit, storage.FormatTime(o.RecordedAt),
		nullString(o.DeviceType), nullString(o.DeviceModel), nullString(o.Metadata),
		storage.FormatTime(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("save biometric %s: %w", o.ID, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
