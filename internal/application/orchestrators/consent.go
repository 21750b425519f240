package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sportsmed/internal/domain/audit"
	"sportsmed/internal/domain/consent"
)

// ErrSignInRequired is returned when a consent action has no authenticated user.
var ErrSignInRequired = errors.New("sign in required")

// ConsentStoreForOrchestrator defines the store interface needed by consent orchestrators.
type ConsentStoreForOrchestrator interface {
	GetByUserID(ctx context.Context, userID string) (consent.HealthConsent, error)
	Upsert(ctx context.Context, c consent.HealthConsent) error
}

// AuditStoreForOrchestrator defines the append-only audit log.
type AuditStoreForOrchestrator interface {
	Save(ctx context.Context, e audit.Event) error
}

// --- Save Consent ---

// SaveConsentInput carries the submitted consent form.
type SaveConsentInput struct {
	UserID    string
	Form      consent.Form
	IPAddress string
	UserAgent string
}

// SaveConsentDeps holds dependencies for SaveConsent.
type SaveConsentDeps struct {
	ConsentStore ConsentStoreForOrchestrator
	AuditStore   AuditStoreForOrchestrator
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSaveConsent persists a consent grant and appends a consent_granted audit entry.
// PRE: none
// POST: Form errors are reported before a missing sign-in
// POST: On success exactly one consent row exists for the user holding the form's choices
// INVARIANT: A failing guard performs no write; an audit failure is logged, not returned
func ExecuteSaveConsent(ctx context.Context, input SaveConsentInput, deps SaveConsentDeps) (consent.HealthConsent, error) {
	if err := input.Form.Check(); err != nil {
		slog.Info("consent_event", "event", "consent_rejected", "user_id", input.UserID, "reason", err.Error())
		return consent.HealthConsent{}, err
	}
	if input.UserID == "" {
		return consent.HealthConsent{}, ErrSignInRequired
	}

	now := deps.Now()
	record, err := deps.ConsentStore.GetByUserID(ctx, input.UserID)
	if err != nil {
		if !errors.Is(err, consent.ErrNotFound) {
			slog.Warn("consent_event", "event", "consent_prefetch_failed", "user_id", input.UserID, "error", err)
		}
		record = consent.HealthConsent{ID: deps.GenerateID(), UserID: input.UserID}
	}
	record.Grant(input.Form, now)
	if err := record.Validate(); err != nil {
		return consent.HealthConsent{}, err
	}
	if err := deps.ConsentStore.Upsert(ctx, record); err != nil {
		return consent.HealthConsent{}, fmt.Errorf("failed to save consent preferences: %w", err)
	}
	slog.Info("consent_event", "event", "consent_saved", "user_id", input.UserID,
		"metrics", len(record.MetricsAllowed), "data_sharing", record.DataSharingAllowed)

	appendAudit(ctx, deps.AuditStore, input.UserID, audit.ActionConsentGranted, now, input.IPAddress, input.UserAgent,
		map[string]any{
			"metrics_allowed":      record.MetricsAllowed,
			"data_sharing_allowed": record.DataSharingAllowed,
		})
	return record, nil
}

// --- Revoke Consent ---

// RevokeConsentInput identifies whose consent to revoke.
type RevokeConsentInput struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// RevokeConsentDeps holds dependencies for RevokeConsent.
type RevokeConsentDeps struct {
	ConsentStore ConsentStoreForOrchestrator
	AuditStore   AuditStoreForOrchestrator
	Now          func() time.Time
}

// ExecuteRevokeConsent withdraws an active consent and appends a consent_revoked audit entry.
// PRE: The user has an active consent record
// POST: revoked_at is set; the record no longer grants access
func ExecuteRevokeConsent(ctx context.Context, input RevokeConsentInput, deps RevokeConsentDeps) (consent.HealthConsent, error) {
	if input.UserID == "" {
		return consent.HealthConsent{}, ErrSignInRequired
	}
	record, err := deps.ConsentStore.GetByUserID(ctx, input.UserID)
	if errors.Is(err, consent.ErrNotFound) {
		return consent.HealthConsent{}, consent.ErrNotActive
	}
	if err != nil {
		return consent.HealthConsent{}, err
	}

	now := deps.Now()
	if err := record.Revoke(now); err != nil {
		return consent.HealthConsent{}, err
	}
	if err := deps.ConsentStore.Upsert(ctx, record); err != nil {
		return consent.HealthConsent{}, err
	}
	slog.Info("consent_event", "event", "consent_revoked", "user_id", input.UserID)

	appendAudit(ctx, deps.AuditStore, input.UserID, audit.ActionConsentRevoked, now, input.IPAddress, input.UserAgent,
		map[string]any{"revoked_at": now})
	return record, nil
}

// appendAudit writes one audit entry. Failures are logged only.
func appendAudit(ctx context.Context, store AuditStoreForOrchestrator, userID string, action audit.Action, now time.Time, ip, ua string, details map[string]any) {
	if store == nil {
		return
	}
	e, err := audit.NewEvent(userID, action, now).WithDetails(details)
	if err == nil {
		err = store.Save(ctx, e.WithRequest(ip, ua))
	}
	if err != nil {
		slog.Error("audit_event", "event", "audit_write_failed", "user_id", userID, "action", string(action), "error", err)
	}
}
