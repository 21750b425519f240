package web

import (
	"errors"
	"log/slog"
	"net/http"

	"sportsmed/internal/adapters/http/middleware"
	"sportsmed/internal/application/orchestrators"
	"sportsmed/internal/application/projections"
	"sportsmed/internal/domain/consent"
)

var (
	toastFetchFailed     = &Toast{Title: "Error", Description: "Failed to load your health data. Please try again later.", Error: true}
	toastSignIn          = &Toast{Title: "Error", Description: "Please sign in to continue", Error: true}
	toastConsentRequired = &Toast{Title: "Consent Required", Description: "Please provide consent to continue.", Error: true}
	toastSelectMetrics   = &Toast{Title: "Select Metrics", Description: "Please select at least one metric to track.", Error: true}
	toastSaveFailed      = &Toast{Title: "Error", Description: "Failed to save consent preferences.", Error: true}
)

// handleBiometrics renders the dashboard or the onboarding panel (GET /biometrics)
// PRE: none; anonymous visitors see onboarding
// POST: Metric cards only when the user holds an active consent
func handleBiometrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	dash := projections.QueryBiometricsDashboard(r.Context(), projections.BiometricsDashboardQuery{
		UserID: sess.AccountID,
		Range:  r.URL.Query().Get("range"),
	}, projections.BiometricsDashboardDeps{
		ConsentStore:   stores.ConsentStore,
		BiometricStore: stores.BiometricStore,
	})
	data := map[string]any{
		"Title":      "Health Metrics",
		"Dashboard":  dash,
		"Tiles":      projections.OnboardingTiles,
		"Features":   projections.OnboardingFeatures,
		"DetailBase": "/biometrics",
	}
	if dash.FetchFailed {
		data["Toast"] = toastFetchFailed
	}
	renderTemplate(w, r, "biometrics.html", data)
}

// parseConsentForm reads the submitted checkbox state.
func parseConsentForm(r *http.Request) consent.Form {
	return consent.NewForm(
		r.PostForm.Get("consent_given") != "",
		r.PostForm.Get("data_sharing_allowed") != "",
		r.PostForm["metrics"],
	)
}

// handleBiometricsConsent handles GET (form) and POST (save or bulk select) for /biometrics/consent
// PRE: none for GET; POST needs a signed-in user to save
// POST: A save writes one consent row and one audit entry, then redirects to /biometrics
// INVARIANT: A rejected submission never writes
func handleBiometricsConsent(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())

	if r.Method == "GET" {
		view := projections.QueryConsentForm(r.Context(), projections.ConsentFormQuery{UserID: sess.AccountID},
			projections.ConsentFormDeps{ConsentStore: stores.ConsentStore})
		data := map[string]any{"Title": "Health Data Consent", "Form": view, "Privacy": site.Site.Privacy}
		if view.FetchFailed {
			data["Toast"] = toastFetchFailed
		}
		renderTemplate(w, r, "consent.html", data)
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	form := parseConsentForm(r)

	rerender := func(status int, toast *Toast) {
		renderTemplateStatus(w, r, status, "consent.html", map[string]any{
			"Title":   "Health Data Consent",
			"Form":    projections.BuildConsentFormView(form),
			"Privacy": site.Site.Privacy,
			"Toast":   toast,
		})
	}

	switch r.PostForm.Get("op") {
	case "select_all":
		form.SelectAll()
		rerender(http.StatusOK, nil)
		return
	case "clear_all":
		form.ClearAll()
		rerender(http.StatusOK, nil)
		return
	}

	_, err := orchestrators.ExecuteSaveConsent(r.Context(), orchestrators.SaveConsentInput{
		UserID:    sess.AccountID,
		Form:      form,
		IPAddress: requestIP(r),
		UserAgent: r.UserAgent(),
	}, orchestrators.SaveConsentDeps{
		ConsentStore: stores.ConsentStore,
		AuditStore:   stores.AuditStore,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	switch {
	case err == nil:
		setFlash(w, Toast{Title: "Consent Saved", Description: "Your preferences have been saved successfully."})
		http.Redirect(w, r, "/biometrics", http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrSignInRequired):
		rerender(http.StatusUnauthorized, toastSignIn)
	case errors.Is(err, consent.ErrConsentRequired):
		rerender(http.StatusUnprocessableEntity, toastConsentRequired)
	case errors.Is(err, consent.ErrNoMetricsSelected):
		rerender(http.StatusUnprocessableEntity, toastSelectMetrics)
	default:
		slog.Error("consent_event", "event", "consent_save_failed", "user_id", sess.AccountID, "error", err)
		rerender(http.StatusInternalServerError, toastSaveFailed)
	}
}
