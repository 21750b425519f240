package consent

import (
	"context"

	"sportsmed/internal/adapters/storage"
	domain "sportsmed/internal/domain/consent"
)

// Store defines the interface for consent persistence.
type Store interface {
	// GetByUserID retrieves the single consent record of a user.
	// PRE: userID is non-empty
	// POST: Returns the record, or domain.ErrNotFound when the user has none
	GetByUserID(ctx context.Context, userID string) (domain.HealthConsent, error)

	// Upsert writes or overwrites the record keyed by user ID.
	// PRE: c has been validated
	// POST: Exactly one row exists for c.UserID, holding c's fields
	Upsert(ctx context.Context, c domain.HealthConsent) error
}

// Ensure SQLStore implements Store interface.
var _ Store = (*SQLStore)(nil)

// SQLDB defines the database interface needed by the store.
type SQLDB interface {
	storage.SQLDB
}
