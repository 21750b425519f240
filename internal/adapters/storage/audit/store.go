package audit

import (
	"context"

	"sportsmed/internal/adapters/storage"
	domain "sportsmed/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
// The log is append-only: there is no update or delete.
type Store interface {
	// Save persists an audit event.
	// PRE: event is valid
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// ListByUser returns a user's audit events newest first.
	// PRE: limit > 0
	// POST: Returns at most limit events ordered by created_at desc
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Event, error)
}

// Ensure SQLStore implements Store interface.
var _ Store = (*SQLStore)(nil)

// SQLDB defines the database interface needed by the store.
type SQLDB interface {
	storage.SQLDB
}
