package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sportsmed/internal/adapters/email"
	"sportsmed/internal/domain/account"
	"sportsmed/internal/domain/audit"
	"sportsmed/internal/domain/biometric"
	"sportsmed/internal/domain/consent"
)

func init() {
	account.BcryptCost = bcrypt.MinCost
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// sequentialIDs returns a generator yielding id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// mockConsentStore implements ConsentStoreForOrchestrator for testing.
type mockConsentStore struct {
	records   map[string]consent.HealthConsent
	upserts   int
	getErr    error
	upsertErr error
}

func newMockConsentStore() *mockConsentStore {
	return &mockConsentStore{records: make(map[string]consent.HealthConsent)}
}

func (m *mockConsentStore) GetByUserID(_ context.Context, userID string) (consent.HealthConsent, error) {
	if m.getErr != nil {
		return consent.HealthConsent{}, m.getErr
	}
	c, ok := m.records[userID]
	if !ok {
		return consent.HealthConsent{}, consent.ErrNotFound
	}
	return c, nil
}

func (m *mockConsentStore) Upsert(_ context.Context, c consent.HealthConsent) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.records[c.UserID] = c
	return nil
}

// mockAuditStore implements AuditStoreForOrchestrator for testing.
type mockAuditStore struct {
	events []audit.Event
	err    error
}

func (m *mockAuditStore) Save(_ context.Context, e audit.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

// mockAccountStore implements the account store interfaces for testing.
type mockAccountStore struct {
	accounts map[string]account.Account // keyed by email
	saves    int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[string]account.Account)}
}

func (m *mockAccountStore) GetByEmail(_ context.Context, e string) (account.Account, error) {
	a, ok := m.accounts[e]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	m.saves++
	m.accounts[a.Email] = a
	return nil
}

// mockBiometricStore implements BiometricStoreForSeed for testing.
type mockBiometricStore struct {
	saved []biometric.Observation
}

func (m *mockBiometricStore) Save(_ context.Context, o biometric.Observation) error {
	m.saved = append(m.saved, o)
	return nil
}

// failingSender always fails to deliver.
type failingSender struct{}

func (failingSender) Send(context.Context, email.SendRequest) (email.SendResult, error) {
	return email.SendResult{}, errors.New("provider down")
}
