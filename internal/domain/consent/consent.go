package consent

import (
	"errors"
	"time"

	"sportsmed/internal/domain/biometric"
)

// Domain errors
var (
	ErrNotFound          = errors.New("no consent record")
	ErrEmptyUserID       = errors.New("user ID is required")
	ErrConsentRequired   = errors.New("primary consent is required")
	ErrNoMetricsSelected = errors.New("at least one metric must be selected")
	ErrNotActive         = errors.New("consent is not currently granted")
	ErrAlreadyRevoked    = errors.New("consent already revoked")
)

// HealthConsent is a user's decision about which health metrics may be collected.
// There is at most one record per user.
type HealthConsent struct {
	ID                 string                 `json:"id"`
	UserID             string                 `json:"user_id"`
	ConsentGiven       bool                   `json:"consent_given"`
	ConsentDate        *time.Time             `json:"consent_date,omitempty"`
	MetricsAllowed     []biometric.MetricType `json:"metrics_allowed"`
	DataSharingAllowed bool                   `json:"data_sharing_allowed"`
	RevokedAt          *time.Time             `json:"revoked_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// IsActive reports whether the record currently grants consent.
// A revoked record never grants consent, whatever ConsentGiven says.
// INVARIANT: HealthConsent fields are not mutated
func (c HealthConsent) IsActive() bool {
	return c.ConsentGiven && c.RevokedAt == nil
}

// Allows reports whether metric m may be tracked under this record.
// INVARIANT: Always false while the record is inactive
func (c HealthConsent) Allows(m biometric.MetricType) bool {
	if !c.IsActive() {
		return false
	}
	for _, a := range c.MetricsAllowed {
		if a == m {
			return true
		}
	}
	return false
}

// SharedWithStaff reports whether medical staff may view this user's metrics.
func (c HealthConsent) SharedWithStaff() bool {
	return c.IsActive() && c.DataSharingAllowed
}

// Validate checks if the HealthConsent has valid data.
// PRE: HealthConsent struct is populated
// POST: Returns nil if valid, error otherwise
func (c *HealthConsent) Validate() error {
	if c.UserID == "" {
		return ErrEmptyUserID
	}
	for _, m := range c.MetricsAllowed {
		if !m.IsValid() {
			return biometric.ErrUnknownMetric
		}
	}
	if c.ConsentGiven && len(c.MetricsAllowed) == 0 {
		return ErrNoMetricsSelected
	}
	return nil
}

// Grant records a fresh grant from a submitted form.
// PRE: f.Check() returned nil
// POST: ConsentGiven is true, RevokedAt is cleared, ConsentDate and UpdatedAt are now
func (c *HealthConsent) Grant(f Form, now time.Time) {
	c.ConsentGiven = true
	c.ConsentDate = &now
	c.MetricsAllowed = f.SelectedMetrics()
	c.DataSharingAllowed = f.DataSharingAllowed
	c.RevokedAt = nil
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// Revoke withdraws consent.
// PRE: Consent is active
// POST: RevokedAt and UpdatedAt are now, ConsentGiven is false
func (c *HealthConsent) Revoke(now time.Time) error {
	if c.RevokedAt != nil {
		return ErrAlreadyRevoked
	}
	if !c.ConsentGiven {
		return ErrNotActive
	}
	c.RevokedAt = &now
	c.ConsentGiven = false
	c.UpdatedAt = now
	return nil
}
