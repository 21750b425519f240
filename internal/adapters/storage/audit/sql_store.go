package audit

import (
	"context"
	"fmt"

	"sportsmed/internal/adapters/storage"
	domain "sportsmed/internal/domain/audit"
)

// SQLStore implements Store using SQLite or Postgres.
type SQLStore struct {
	db SQLDB
}

// NewSQLStore creates a new audit store.
func NewSQLStore(db SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Save persists an audit event.
// PRE: event is valid
// POST: Event is appended to biometric_audit_log
func (s *SQLStore) Save(ctx context.Context, e domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO biometric_audit_log (id, user_id, action, details, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Action), e.Details, e.IPAddress, e.UserAgent,
		storage.FormatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("save audit event %s: %w", e.Action, err)
	}
	return nil
}

// ListByUser returns a user's audit events newest first.
// PRE: limit > 0
// POST: Returns at most limit events
func (s *SQLStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, action, details, ip_address, user_agent, created_at
		 FROM biometric_audit_log WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var action, createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.Details, &e.IPAddress, &e.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		e.Action = domain.Action(action)
		if e.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
