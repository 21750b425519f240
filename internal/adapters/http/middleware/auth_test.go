package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainAccount "sportsmed/internal/domain/account"
)

var athlete = Session{AccountID: "a1", Email: "ana@example.com", UserType: domainAccount.TypeAthlete, FirstName: "Ana"}

func TestSessionStore_CreateGetDelete(t *testing.T) {
	ss := NewSessionStore(time.Hour)
	token, err := ss.Create(athlete)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	got, ok := ss.Get(token)
	if !ok || got.AccountID != "a1" || got.CreatedAt.IsZero() {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	ss.Delete(token)
	if _, ok := ss.Get(token); ok {
		t.Error("session survived Delete")
	}
}

// TestSessionStore_Expiry verifies expired sessions are rejected and dropped.
func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ss := NewSessionStore(time.Hour)
	ss.now = func() time.Time { return now }
	token, _ := ss.Create(athlete)

	now = now.Add(61 * time.Minute)
	if _, ok := ss.Get(token); ok {
		t.Error("expired session accepted")
	}
	if ss.Len() != 0 {
		t.Errorf("Len = %d, want 0 after expiry", ss.Len())
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer([]byte("secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	raw, expires, err := ti.Issue(athlete)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expires = %v, want in the future", expires)
	}
	sess, err := ti.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sess.AccountID != "a1" || sess.UserType != domainAccount.TypeAthlete || !sess.Bearer || sess.StaffApproved {
		t.Errorf("Parse = %+v", sess)
	}

	raw, _, _ = ti.Issue(Session{AccountID: "s1", UserType: domainAccount.TypeStaff, StaffApproved: true})
	if sess, err := ti.Parse(raw); err != nil || !sess.CanViewAthletes() {
		t.Errorf("approved staff token = %+v, %v", sess, err)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	ti, _ := NewTokenIssuer([]byte("secret"), time.Hour)
	other, _ := NewTokenIssuer([]byte("other"), time.Hour)
	foreign, _, _ := other.Issue(athlete)

	expired, _ := NewTokenIssuer([]byte("secret"), time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, _ := expired.Issue(athlete)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "a1", "iss": "sportsmed"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, raw := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      stale,
		"alg none":     none,
	} {
		if _, err := ti.Parse(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: Parse err = %v, want ErrInvalidToken", name, err)
		}
	}

	if _, err := NewTokenIssuer(nil, time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewTokenIssuer(nil) err = %v", err)
	}
}

// sessionEcho writes the resolved account ID, or "anon".
func sessionEcho(w http.ResponseWriter, r *http.Request) {
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		w.Write([]byte(sess.AccountID))
		return
	}
	w.Write([]byte("anon"))
}

func TestAuth_ResolvesCookieAndBearer(t *testing.T) {
	ss := NewSessionStore(time.Hour)
	ti, _ := NewTokenIssuer([]byte("secret"), time.Hour)
	handler := Auth(ss, ti)(http.HandlerFunc(sessionEcho))

	cookieToken, _ := ss.Create(athlete)
	staff := Session{AccountID: "s1", UserType: domainAccount.TypeStaff}
	bearer, _, _ := ti.Issue(staff)

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"none", func(r *http.Request) {}, "anon"},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookieToken})
		}, "a1"},
		{"unknown cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "nope"})
		}, "anon"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+bearer) }, "s1"},
		{"bad bearer ignores cookie", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer junk")
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookieToken})
		}, "anon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/consent", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.want)
			}
		})
	}
}

func TestRequireAuth_Redirects(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(sessionEcho))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/profile", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login?next=/profile" {
		t.Errorf("anon = %d %q", rr.Code, rr.Header().Get("Location"))
	}

	req := httptest.NewRequest("GET", "/profile", nil)
	req = req.WithContext(ContextWithSession(req.Context(), athlete))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("signed in = %d, want 200", rr.Code)
	}
}

func TestRequireStaff(t *testing.T) {
	handler := RequireStaff(http.HandlerFunc(sessionEcho))

	req := httptest.NewRequest("GET", "/athletes/a1", nil)
	req = req.WithContext(ContextWithSession(req.Context(), athlete))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("athlete = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("GET", "/athletes/a1", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{AccountID: "s2", UserType: domainAccount.TypeStaff}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("unapproved staff = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("GET", "/athletes/a1", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{AccountID: "s1", UserType: domainAccount.TypeStaff, StaffApproved: true}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("approved staff = %d, want 200", rr.Code)
	}
}

func TestSessionCookies(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok")
	c := rr.Result().Cookies()
	if len(c) != 1 || c[0].Name != "sportsmed_session" || c[0].Value != "tok" || !c[0].HttpOnly {
		t.Errorf("cookie = %+v", c)
	}

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr)
	if c := rr.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("cleared cookie = %+v", c)
	}
}
