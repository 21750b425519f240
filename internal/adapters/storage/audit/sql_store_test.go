package audit_test

import (
	"context"
	"testing"
	"time"

	auditStore "sportsmed/internal/adapters/storage/audit"
	"sportsmed/internal/adapters/storage/storagetest"
	domain "sportsmed/internal/domain/audit"
)

func TestSQLStore_SaveAndList(t *testing.T) {
	store := auditStore.NewSQLStore(storagetest.Open(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	granted, err := domain.NewEvent("u1", domain.ActionConsentGranted, now).
		WithDetails(map[string]any{"metrics_allowed": []string{"steps"}})
	if err != nil {
		t.Fatalf("WithDetails: %v", err)
	}
	granted = granted.WithRequest("203.0.113.9", "test-agent")
	revoked := domain.NewEvent("u1", domain.ActionConsentRevoked, now.Add(time.Hour))

	for _, e := range []domain.Event{granted, revoked} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save %s: %v", e.Action, err)
		}
	}

	got, err := store.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Action != domain.ActionConsentRevoked || got[1].Action != domain.ActionConsentGranted {
		t.Errorf("order = %s, %s; want newest first", got[0].Action, got[1].Action)
	}
	if got[1].IPAddress != "203.0.113.9" || got[1].UserAgent != "test-agent" {
		t.Errorf("request metadata lost: %+v", got[1])
	}
}

func TestSQLStore_SaveRejectsInvalid(t *testing.T) {
	store := auditStore.NewSQLStore(storagetest.Open(t))
	if err := store.Save(context.Background(), domain.Event{ID: "e", Action: domain.ActionConsentGranted, Details: "{}"}); err == nil {
		t.Error("Save accepted an event without a user ID")
	}
}
