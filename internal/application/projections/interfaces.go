package projections

import (
	"context"

	"sportsmed/internal/adapters/storage/account"
	"sportsmed/internal/adapters/storage/biometric"
	domainAccount "sportsmed/internal/domain/account"
	domainBiometric "sportsmed/internal/domain/biometric"
	domainConsent "sportsmed/internal/domain/consent"
)

// ConsentStore interface for consent queries.
type ConsentStore interface {
	GetByUserID(ctx context.Context, userID string) (domainConsent.HealthConsent, error)
}

// BiometricStore interface for observation queries.
type BiometricStore interface {
	ListRecent(ctx context.Context, userID string, filter biometric.ListFilter) ([]domainBiometric.Observation, error)
}

// AccountStore interface for account queries.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (domainAccount.Account, error)
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
}
