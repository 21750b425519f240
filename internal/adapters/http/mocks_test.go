package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sportsmed/internal/adapters/email"
	"sportsmed/internal/adapters/http/middleware"
	accountStore "sportsmed/internal/adapters/storage/account"
	biometricStore "sportsmed/internal/adapters/storage/biometric"
	accountDomain "sportsmed/internal/domain/account"
	auditDomain "sportsmed/internal/domain/audit"
	biometricDomain "sportsmed/internal/domain/biometric"
	consentDomain "sportsmed/internal/domain/consent"
)

func init() {
	accountDomain.BcryptCost = bcrypt.MinCost
}

var fixedNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("store unavailable")

// --- Mock stores ---

type mockAccountStore struct {
	accounts map[string]accountDomain.Account
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (accountDomain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return accountDomain.Account{}, accountDomain.ErrNotFound
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (accountDomain.Account, error) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return accountDomain.Account{}, accountDomain.ErrNotFound
}

func (m *mockAccountStore) Save(_ context.Context, a accountDomain.Account) error {
	for id, other := range m.accounts {
		if id != a.ID && strings.EqualFold(other.Email, a.Email) {
			return accountDomain.ErrEmailTaken
		}
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) List(_ context.Context, filter accountStore.ListFilter) ([]accountDomain.Account, error) {
	var out []accountDomain.Account
	for _, a := range m.accounts {
		if filter.UserType == "" || a.UserType == filter.UserType {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

type mockConsentStore struct {
	records map[string]consentDomain.HealthConsent
	upserts int
	err     error
}

func (m *mockConsentStore) GetByUserID(_ context.Context, userID string) (consentDomain.HealthConsent, error) {
	if m.err != nil {
		return consentDomain.HealthConsent{}, m.err
	}
	if c, ok := m.records[userID]; ok {
		return c, nil
	}
	return consentDomain.HealthConsent{}, consentDomain.ErrNotFound
}

func (m *mockConsentStore) Upsert(_ context.Context, c consentDomain.HealthConsent) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	m.records[c.UserID] = c
	return nil
}

type mockBiometricStore struct {
	observations []biometricDomain.Observation
}

func (m *mockBiometricStore) ListRecent(_ context.Context, userID string, filter biometricStore.ListFilter) ([]biometricDomain.Observation, error) {
	var out []biometricDomain.Observation
	for _, o := range m.observations {
		if o.UserID != userID {
			continue
		}
		if filter.MetricType != "" && o.MetricType != filter.MetricType {
			continue
		}
		if filter.Since != nil && o.RecordedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockBiometricStore) Save(_ context.Context, o biometricDomain.Observation) error {
	m.observations = append(m.observations, o)
	return nil
}

type mockAuditStore struct {
	events []auditDomain.Event
}

func (m *mockAuditStore) Save(_ context.Context, e auditDomain.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *mockAuditStore) ListByUser(_ context.Context, userID string, limit int) ([]auditDomain.Event, error) {
	var out []auditDomain.Event
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].UserID == userID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// --- Test environment ---

type testEnv struct {
	accounts   *mockAccountStore
	consents   *mockConsentStore
	biometrics *mockBiometricStore
	audit      *mockAuditStore
	mail       *email.NoopSender
}

// setupWeb points the package globals at fresh mocks and restores them afterwards.
func setupWeb(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		accounts:   &mockAccountStore{accounts: map[string]accountDomain.Account{}},
		consents:   &mockConsentStore{records: map[string]consentDomain.HealthConsent{}},
		biometrics: &mockBiometricStore{},
		audit:      &mockAuditStore{},
		mail:       email.NewNoopSender(),
	}

	prevStores, prevSessions, prevTokens := stores, sessions, tokens
	prevSender, prevNow, prevPinger, prevCollector := emailSender, timeNow, dbPinger, perfCollector
	t.Cleanup(func() {
		stores, sessions, tokens = prevStores, prevSessions, prevTokens
		emailSender, timeNow, dbPinger, perfCollector = prevSender, prevNow, prevPinger, prevCollector
	})

	stores = &Stores{
		AccountStore:   env.accounts,
		ConsentStore:   env.consents,
		BiometricStore: env.biometrics,
		AuditStore:     env.audit,
	}
	sessions = middleware.NewSessionStore(time.Hour)
	tokens = nil
	emailSender = env.mail
	timeNow = func() time.Time { return fixedNow }
	dbPinger = nil
	perfCollector = nil
	return env
}

// addAccount stores an account with the given password.
func (env *testEnv) addAccount(t *testing.T, id, first, userType, password string) accountDomain.Account {
	t.Helper()
	a := accountDomain.Account{
		ID:        id,
		Email:     id + "@example.com",
		FirstName: first,
		LastName:  "Tester",
		UserType:  userType,
		CreatedAt: fixedNow.Add(-24 * time.Hour),
	}
	if password != "" {
		if err := a.SetPassword(password); err != nil {
			t.Fatalf("SetPassword: %v", err)
		}
	}
	env.accounts.accounts[id] = a
	return a
}

// approveStaff marks a stored staff account as approved.
func (env *testEnv) approveStaff(t *testing.T, id string) {
	t.Helper()
	a := env.accounts.accounts[id]
	if err := a.SetStaffApproval(true); err != nil {
		t.Fatalf("SetStaffApproval(%s): %v", id, err)
	}
	env.accounts.accounts[id] = a
}

// sessionCookie returns the session cookie set on w.
func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// grantConsent stores an active consent for userID.
func (env *testEnv) grantConsent(userID string, sharing bool, metrics ...string) consentDomain.HealthConsent {
	c := consentDomain.HealthConsent{ID: "consent-" + userID, UserID: userID}
	c.Grant(consentDomain.NewForm(true, sharing, metrics), fixedNow.Add(-time.Hour))
	env.consents.records[userID] = c
	return c
}

func (env *testEnv) addObservation(userID string, m biometricDomain.MetricType, v float64, at time.Time) {
	env.biometrics.observations = append(env.biometrics.observations, biometricDomain.Observation{
		ID:         userID + "-" + string(m) + "-" + at.Format(time.RFC3339),
		UserID:     userID,
		MetricType: m,
		Value:      v,
		Unit:       biometricDomain.ConfigFor(m).Unit,
		RecordedAt: at,
		CreatedAt:  at,
	})
}

// withSession attaches a signed-in session to r.
func withSession(r *http.Request, id, userType string) *http.Request {
	return r.WithContext(middleware.ContextWithSession(r.Context(), middleware.Session{
		AccountID: id,
		Email:     id + "@example.com",
		UserType:  userType,
		FirstName: "Test",
	}))
}

// formRequest builds a urlencoded POST.
func formRequest(path string, values url.Values) *http.Request {
	r, _ := http.NewRequest("POST", path, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.RemoteAddr = "203.0.113.7:5123"
	r.Header.Set("User-Agent", "web-test")
	return r
}
