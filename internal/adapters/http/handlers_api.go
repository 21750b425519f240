package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sportsmed/internal/adapters/http/middleware"
	"sportsmed/internal/application/orchestrators"
	"sportsmed/internal/application/projections"
	"sportsmed/internal/domain/biometric"
	"sportsmed/internal/domain/consent"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	UserType  string    `json:"user_type"`
}

// handleAPIToken exchanges credentials for a bearer token (POST /api/token)
// PRE: Body is {"email","password"}
// POST: 200 with a signed token, 401 on bad credentials, 423 when locked
func handleAPIToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if tokens == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "tokens_disabled", "API tokens are not configured")
		return
	}
	var req tokenRequest
	if err := strictDecode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "request body must be {\"email\", \"password\"}")
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{Email: req.Email, Password: req.Password},
		orchestrators.LoginDeps{AccountStore: stores.AccountStore, Now: timeNow})
	switch {
	case errors.Is(err, orchestrators.ErrAccountLocked):
		writeJSONError(w, http.StatusLocked, "account_locked", err.Error())
		return
	case err != nil:
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	token, expires, err := tokens.Issue(middleware.Session{
		AccountID:     result.AccountID,
		Email:         result.Email,
		UserType:      result.UserType,
		FirstName:     result.FirstName,
		StaffApproved: result.StaffApproved,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires, UserType: result.UserType})
}

// handleAPIMetrics lists the metric catalog (GET /api/metrics). Public.
func handleAPIMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": biometric.Catalog()})
}

// apiSession returns the caller or writes a 401.
func apiSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "sign in or send a bearer token")
	}
	return sess, ok
}

// handleAPIConsent returns the caller's consent record (GET /api/consent)
// POST: 404 not_found when the caller never saved one
func handleAPIConsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := apiSession(w, r)
	if !ok {
		return
	}
	c, err := stores.ConsentStore.GetByUserID(r.Context(), sess.AccountID)
	if errors.Is(err, consent.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "no consent record")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consent": c, "active": c.IsActive()})
}

// handleAPIBiometrics lists the caller's recent observations (GET /api/biometrics?metric=&limit=&since=)
// POST: 403 consent_required without an active consent; results hold allowed metrics only
func handleAPIBiometrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := apiSession(w, r)
	if !ok {
		return
	}
	limit := biometric.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_since", "since must be an RFC 3339 timestamp")
			return
		}
		since = &t
	}

	feed, err := projections.QueryBiometricsFeed(r.Context(), projections.BiometricsFeedQuery{
		UserID: sess.AccountID,
		Metric: r.URL.Query().Get("metric"),
		Limit:  limit,
		Since:  since,
	}, projections.BiometricsFeedDeps{
		ConsentStore:   stores.ConsentStore,
		BiometricStore: stores.BiometricStore,
	})
	switch {
	case errors.Is(err, biometric.ErrUnknownMetric):
		writeJSONError(w, http.StatusBadRequest, "unknown_metric", err.Error())
		return
	case errors.Is(err, consent.ErrNotActive):
		writeJSONError(w, http.StatusForbidden, "consent_required", "biometric consent has not been granted")
		return
	case errors.Is(err, projections.ErrMetricNotAllowed):
		writeJSONError(w, http.StatusForbidden, "metric_not_allowed", err.Error())
		return
	case err != nil:
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"observations": feed.Observations,
		"count":        len(feed.Observations),
	})
}
