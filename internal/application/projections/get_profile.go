package projections

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainBiometric "sportsmed/internal/domain/biometric"
	domainConsent "sportsmed/internal/domain/consent"
)

// ConsentSummary describes the consent state on the profile page.
type ConsentSummary struct {
	Exists       bool
	Active       bool
	MetricLabels []string
	Sharing      bool
	ConsentDate  *time.Time
	RevokedAt    *time.Time
}

// ProfileView is the profile page view model.
type ProfileView struct {
	AccountID string
	FullName  string
	Email     string
	UserType  string
	MemberAt  time.Time
	Consent   ConsentSummary
	// StaffPending is true for staff accounts still waiting for approval.
	StaffPending bool
}

// ProfileQuery carries query parameters.
type ProfileQuery struct {
	UserID string
}

// ProfileDeps holds dependencies for Profile.
type ProfileDeps struct {
	AccountStore AccountStore
	ConsentStore ConsentStore
}

// QueryProfile retrieves the signed-in user's account and consent status.
// PRE: UserID is non-empty
// POST: Returns an error only when the account cannot be read
func QueryProfile(ctx context.Context, query ProfileQuery, deps ProfileDeps) (ProfileView, error) {
	acct, err := deps.AccountStore.GetByID(ctx, query.UserID)
	if err != nil {
		return ProfileView{}, err
	}
	view := ProfileView{
		AccountID: acct.ID,
		FullName:  acct.FullName(),
		Email:     acct.Email,
		UserType:  acct.UserType,
		MemberAt:  acct.CreatedAt,
	}
	view.StaffPending = acct.IsStaff() && !acct.CanViewAthletes()

	c, err := deps.ConsentStore.GetByUserID(ctx, query.UserID)
	switch {
	case errors.Is(err, domainConsent.ErrNotFound):
	case err != nil:
		slog.Error("profile_event", "event", "consent_fetch_failed", "user_id", query.UserID, "error", err)
	default:
		view.Consent = summarizeConsent(c)
	}
	return view, nil
}

func summarizeConsent(c domainConsent.HealthConsent) ConsentSummary {
	s := ConsentSummary{
		Exists:      true,
		Active:      c.IsActive(),
		Sharing:     c.SharedWithStaff(),
		ConsentDate: c.ConsentDate,
		RevokedAt:   c.RevokedAt,
	}
	for _, m := range c.MetricsAllowed {
		s.MetricLabels = append(s.MetricLabels, domainBiometric.ConfigFor(m).Label)
	}
	return s
}
