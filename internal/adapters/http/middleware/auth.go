package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainAccount "sportsmed/internal/domain/account"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const accountContextKey contextKey = "account"

// DefaultSessionTTL bounds how long a session cookie or bearer token stays valid.
const DefaultSessionTTL = 24 * time.Hour

// SecureCookies marks session cookies Secure. Set from config in production.
var SecureCookies = false

// Session represents an authenticated user for the duration of a request.
type Session struct {
	AccountID string
	Email     string
	UserType  string
	FirstName string
	CreatedAt time.Time
	// StaffApproved is copied from the account at sign-in.
	StaffApproved bool
	// Bearer is true when the request authenticated with an API token instead of the cookie.
	Bearer bool
}

// IsStaff reports whether the session belongs to a staff account.
// INVARIANT: Session fields are not mutated
func (s Session) IsStaff() bool {
	return s.UserType == domainAccount.TypeStaff
}

// CanViewAthletes reports whether the session belongs to approved staff.
func (s Session) CanViewAthletes() bool {
	return s.IsStaff() && s.StaffApproved
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a new in-memory session store whose sessions live for ttl.
// PRE: ttl > 0, otherwise DefaultSessionTTL is used
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create stores a new session and returns the token.
// PRE: sess.AccountID is non-empty
// POST: Session is stored with CreatedAt set, token is returned
func (ss *SessionStore) Create(sess Session) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	sess.CreatedAt = ss.now()
	sess.Bearer = false
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = sess
	return token, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: Returns session if valid and not expired; expired sessions are dropped
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	session, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(session.CreatedAt) > ss.ttl {
		ss.Delete(token)
		return Session{}, false
	}
	return session, true
}

// Delete removes a session by token.
// POST: Session with given token is removed
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// Len returns the number of stored sessions, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Token errors
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrEmptySecret  = errors.New("token secret cannot be empty")
)

// tokenClaims are the JWT claims carried by API bearer tokens.
type tokenClaims struct {
	Email     string `json:"email"`
	UserType  string `json:"user_type"`
	FirstName string `json:"first_name,omitempty"`
	Approved  bool   `json:"staff_approved,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 API tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer for the given HMAC secret.
// PRE: secret is non-empty
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the session's account.
// POST: Returned token expires after the issuer's TTL
func (ti *TokenIssuer) Issue(sess Session) (string, time.Time, error) {
	now := ti.now()
	expires := now.Add(ti.ttl)
	claims := tokenClaims{
		Email:     sess.Email,
		UserType:  sess.UserType,
		FirstName: sess.FirstName,
		Approved:  sess.StaffApproved,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.AccountID,
			Issuer:    "sportsmed",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies a token and returns the session it carries.
// POST: Returns ErrInvalidToken for a bad signature, wrong algorithm or expiry
func (ti *TokenIssuer) Parse(raw string) (Session, error) {
	claims := &tokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("sportsmed"),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	sess := Session{
		AccountID:     claims.Subject,
		Email:         claims.Email,
		UserType:      claims.UserType,
		FirstName:     claims.FirstName,
		StaffApproved: claims.Approved,
		Bearer:        true,
	}
	if claims.IssuedAt != nil {
		sess.CreatedAt = claims.IssuedAt.Time
	}
	return sess, nil
}

const sessionCookieName = "sportsmed_session"

// SessionCookieName is exported for handlers that need to read the raw token.
const SessionCookieName = sessionCookieName

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Auth returns middleware that resolves the session from the cookie or a bearer token.
// It does NOT block unauthenticated requests; use RequireAuth or RequireStaff for that.
// tokens may be nil, in which case bearer tokens are ignored.
func Auth(sessions *SessionStore, tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := bearerToken(r); raw != "" && tokens != nil {
				if sess, err := tokens.Parse(raw); err == nil {
					r = r.WithContext(ContextWithSession(r.Context(), sess))
				}
				next.ServeHTTP(w, r)
				return
			}
			cookie, err := r.Cookie(sessionCookieName)
			if err == nil && cookie.Value != "" {
				if session, ok := sessions.Get(cookie.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns middleware that redirects unauthenticated requests to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login?next="+r.URL.Path, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff blocks requests from anyone but signed-in, approved staff.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !session.IsStaff() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if !session.StaffApproved {
			http.Error(w, "Your staff account is awaiting approval.", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(accountContextKey).(Session)
	return session, ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, accountContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(DefaultSessionTTL.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
