package biometric

import (
	"context"
	"time"

	"sportsmed/internal/adapters/storage"
	domain "sportsmed/internal/domain/biometric"
)

// Store persists biometric observations.
type Store interface {
	// ListRecent returns a user's observations, newest first.
	// PRE: userID is non-empty
	// POST: Returns at most domain.DefaultRecentLimit observations ordered by recorded_at desc
	ListRecent(ctx context.Context, userID string, filter ListFilter) ([]domain.Observation, error)

	// Save persists one observation.
	// PRE: o has been validated
	// POST: Observation is persisted (insert or update by ID)
	Save(ctx context.Context, o domain.Observation) error
}

// ListFilter narrows a ListRecent call.
type ListFilter struct {
	MetricType domain.MetricType
	Since      *time.Time
	Limit      int
}

// Ensure SQLStore implements Store interface.
var _ Store = (*SQLStore)(nil)

// SQLDB defines the database interface needed by the store.
type SQLDB interface {
	storage.SQLDB
}
