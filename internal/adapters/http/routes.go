package web

import (
	"net/http"

	"sportsmed/internal/adapters/http/middleware"
)

// registerRoutes attaches every page, form and API handler to mux.
func registerRoutes(mux *http.ServeMux) {
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(staticFS())))

	// Pages
	mux.HandleFunc("/", handleHome)
	mux.HandleFunc("/appointments", handleStaticPage("appointments"))
	mux.HandleFunc("/treatments", handleStaticPage("treatments"))
	mux.HandleFunc("/resources", handleStaticPage("resources"))
	mux.HandleFunc("/healthz", handleHealthz)

	// Accounts
	mux.HandleFunc("/signup", handleSignUp)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.Handle("/profile", middleware.RequireAuth(http.HandlerFunc(handleProfile)))
	mux.Handle("/profile/consent/revoke", middleware.RequireAuth(http.HandlerFunc(handleRevokeConsent)))
	mux.Handle("/profile/password", middleware.RequireAuth(http.HandlerFunc(handleChangePassword)))

	// Biometrics
	mux.HandleFunc("/biometrics", handleBiometrics)
	mux.HandleFunc("/biometrics/consent", handleBiometricsConsent)

	// Athletes
	mux.HandleFunc("/athletes", handleAthletes)
	mux.Handle("GET /athletes/{id}", middleware.RequireStaff(http.HandlerFunc(handleAthleteDashboard)))

	// JSON API
	mux.HandleFunc("/api/token", handleAPIToken)
	mux.HandleFunc("/api/metrics", handleAPIMetrics)
	mux.HandleFunc("/api/consent", handleAPIConsent)
	mux.HandleFunc("/api/biometrics", handleAPIBiometrics)
	mux.HandleFunc("/api/audit", handleAPIAuditLog)
}
