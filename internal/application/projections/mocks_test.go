package projections

import (
	"context"
	"errors"

	"sportsmed/internal/adapters/storage/account"
	"sportsmed/internal/adapters/storage/biometric"
	domainAccount "sportsmed/internal/domain/account"
	domainBiometric "sportsmed/internal/domain/biometric"
	domainConsent "sportsmed/internal/domain/consent"
)

var errStoreDown = errors.New("store unavailable")

// mockConsentStore implements ConsentStore for testing.
type mockConsentStore struct {
	records map[string]domainConsent.HealthConsent
	err     error
}

func (m *mockConsentStore) GetByUserID(_ context.Context, userID string) (domainConsent.HealthConsent, error) {
	if m.err != nil {
		return domainConsent.HealthConsent{}, m.err
	}
	c, ok := m.records[userID]
	if !ok {
		return domainConsent.HealthConsent{}, domainConsent.ErrNotFound
	}
	return c, nil
}

// mockBiometricStore implements BiometricStore for testing.
type mockBiometricStore struct {
	observations []domainBiometric.Observation
	err          error
	calls        int
	lastFilter   biometric.ListFilter
}

func (m *mockBiometricStore) ListRecent(_ context.Context, userID string, filter biometric.ListFilter) ([]domainBiometric.Observation, error) {
	m.calls++
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []domainBiometric.Observation
	for _, o := range m.observations {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// mockAccountStore implements AccountStore for testing.
type mockAccountStore struct {
	accounts []domainAccount.Account
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (domainAccount.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return domainAccount.Account{}, domainAccount.ErrNotFound
}

func (m *mockAccountStore) List(_ context.Context, f account.ListFilter) ([]domainAccount.Account, error) {
	var out []domainAccount.Account
	for _, a := range m.accounts {
		if f.UserType == "" || a.UserType == f.UserType {
			out = append(out, a)
		}
	}
	return out, nil
}

func activeConsent(userID string, sharing bool, metrics ...string) domainConsent.HealthConsent {
	c := domainConsent.HealthConsent{ID: "c-" + userID, UserID: userID}
	c.Grant(domainConsent.NewForm(true, sharing, metrics), fixedTime)
	return c
}
