package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"sportsmed/internal/adapters/http/middleware"
	"sportsmed/internal/application/orchestrators"
	"sportsmed/internal/application/projections"
	"sportsmed/internal/domain/account"
	"sportsmed/internal/domain/consent"
)

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return "/biometrics"
}

func startSession(w http.ResponseWriter, sess middleware.Session) error {
	token, err := sessions.Create(sess)
	if err != nil {
		return err
	}
	middleware.SetSessionCookie(w, token)
	return nil
}

// handleSignUp handles GET (form) and POST (create account) for /signup
// PRE: none
// POST: On success the user is signed in and redirected with a flash: athletes to the
// consent page, staff to their profile until an operator approves them
func handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		renderTemplate(w, r, "signup.html", map[string]any{
			"Title":  "Sign Up",
			"Form":   account.SignUpForm{UserType: account.TypeAthlete},
			"Errors": account.FieldErrors{},
		})
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

	form := account.SignUpForm{
		FirstName:       r.FormValue("firstName"),
		LastName:        r.FormValue("lastName"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
		UserType:        r.FormValue("userType"),
	}
	acct, err := orchestrators.ExecuteSignUp(r.Context(), orchestrators.SignUpInput{
		Form:     form,
		LoginURL: baseURL + "/login",
	}, orchestrators.SignUpDeps{
		AccountStore: stores.AccountStore,
		EmailSender:  emailSender,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	if err != nil {
		var fieldErrs account.FieldErrors
		if !errors.As(err, &fieldErrs) {
			internalError(w, err)
			return
		}
		form.Password, form.ConfirmPassword = "", ""
		renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "signup.html", map[string]any{
			"Title":  "Sign Up",
			"Form":   form,
			"Errors": fieldErrs,
		})
		return
	}

	if err := startSession(w, middleware.Session{
		AccountID:     acct.ID,
		Email:         acct.Email,
		UserType:      acct.UserType,
		FirstName:     acct.FirstName,
		StaffApproved: acct.CanViewAthletes(),
	}); err != nil {
		internalError(w, err)
		return
	}
	if acct.IsStaff() {
		setFlash(w, Toast{
			Title:       "Account created successfully!",
			Description: "Your staff account is awaiting approval. You can view athletes' shared data once it is approved.",
		})
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	setFlash(w, Toast{
		Title:       "Account created successfully!",
		Description: "Welcome to SportsMed Pro. Please check your email to verify your account.",
	})
	http.Redirect(w, r, "/biometrics/consent", http.StatusSeeOther)
}

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/biometrics", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{
			"Title": "Sign In",
			"Next":  r.URL.Query().Get("next"),
		})
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

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		Now:          timeNow,
	})
	if err != nil {
		msg := "Invalid email or password."
		if errors.Is(err, orchestrators.ErrAccountLocked) {
			msg = "Too many failed attempts. Try again in 15 minutes."
		}
		renderTemplateStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{
			"Title": "Sign In",
			"Email": r.FormValue("email"),
			"Next":  r.FormValue("next"),
			"Toast": &Toast{Title: "Sign in failed", Description: msg, Error: true},
		})
		return
	}

	if err := startSession(w, middleware.Session{
		AccountID:     result.AccountID,
		Email:         result.Email,
		UserType:      result.UserType,
		FirstName:     result.FirstName,
		StaffApproved: result.StaffApproved,
	}); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, safeNext(r.FormValue("next")), http.StatusSeeOther)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleProfile renders the signed-in user's profile (GET /profile)
// PRE: User is authenticated
// POST: Renders account details and consent status
func handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	view, err := projections.QueryProfile(r.Context(), projections.ProfileQuery{UserID: sess.AccountID}, projections.ProfileDeps{
		AccountStore: stores.AccountStore,
		ConsentStore: stores.ConsentStore,
	})
	if errors.Is(err, account.ErrNotFound) {
		// The account vanished under a live session.
		if cookie, cerr := r.Cookie(middleware.SessionCookieName); cerr == nil {
			sessions.Delete(cookie.Value)
		}
		middleware.ClearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "profile.html", map[string]any{
		"Title":   "Profile",
		"Profile": view,
	})
}

// handleRevokeConsent withdraws the user's biometric consent (POST /profile/consent/revoke)
// PRE: User is authenticated
// POST: Redirects to /profile with a flash describing the outcome
func handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	_, err := orchestrators.ExecuteRevokeConsent(r.Context(), orchestrators.RevokeConsentInput{
		UserID:    sess.AccountID,
		IPAddress: requestIP(r),
		UserAgent: r.UserAgent(),
	}, orchestrators.RevokeConsentDeps{
		ConsentStore: stores.ConsentStore,
		AuditStore:   stores.AuditStore,
		Now:          timeNow,
	})
	switch {
	case err == nil:
		setFlash(w, Toast{Title: "Consent Revoked", Description: "Biometric tracking has been turned off."})
	case errors.Is(err, consent.ErrNotActive), errors.Is(err, consent.ErrAlreadyRevoked):
		setFlash(w, Toast{Title: "Nothing to revoke", Description: "You have no active biometric consent.", Error: true})
	default:
		slog.Error("consent_event", "event", "revoke_failed", "user_id", sess.AccountID, "error", err)
		setFlash(w, Toast{Title: "Error", Description: "Failed to revoke consent. Please try again.", Error: true})
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// handleChangePassword updates the signed-in user's password (POST /profile/password)
// POST: Redirects to /profile with a flash describing the outcome
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: r.FormValue("currentPassword"),
		NewPassword:     r.FormValue("newPassword"),
		ConfirmPassword: r.FormValue("confirmPassword"),
	}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore})

	switch {
	case err == nil:
		setFlash(w, Toast{Title: "Password Changed", Description: "Use your new password next time you sign in."})
	case errors.Is(err, orchestrators.ErrCurrentPasswordWrong):
		setFlash(w, Toast{Title: "Password not changed", Description: "Your current password is incorrect.", Error: true})
	case errors.Is(err, orchestrators.ErrPasswordMismatch):
		setFlash(w, Toast{Title: "Password not changed", Description: "The new passwords don't match.", Error: true})
	case errors.Is(err, orchestrators.ErrNewPasswordSame):
		setFlash(w, Toast{Title: "Password not changed", Description: "Choose a password you are not already using.", Error: true})
	case errors.Is(err, account.ErrPasswordTooShort), errors.Is(err, account.ErrEmptyPassword):
		setFlash(w, Toast{Title: "Password not changed", Description: "Password must be at least 8 characters.", Error: true})
	default:
		slog.Error("auth_event", "event", "password_change_failed", "account_id", sess.AccountID, "error", err)
		setFlash(w, Toast{Title: "Error", Description: "Failed to change password. Please try again.", Error: true})
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
