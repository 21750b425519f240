package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sportsmed/internal/adapters/email"
	"sportsmed/internal/domain/account"
)

// AccountStoreForSignUp defines the store interface needed by SignUp.
type AccountStoreForSignUp interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// SignUpInput carries the submitted form and the link used in the welcome email.
type SignUpInput struct {
	Form     account.SignUpForm
	LoginURL string
}

// SignUpDeps holds dependencies for SignUp.
type SignUpDeps struct {
	AccountStore AccountStoreForSignUp
	EmailSender  email.Sender
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSignUp validates the form, creates the account and sends a welcome email.
// PRE: none
// POST: On success the account is persisted with a bcrypt hash; on failure nothing is written
// INVARIANT: Email must be unique; a failed welcome email does not fail the sign-up
func ExecuteSignUp(ctx context.Context, input SignUpInput, deps SignUpDeps) (account.Account, error) {
	form := input.Form
	form.Normalize()
	if err := form.Validate(); err != nil {
		return account.Account{}, err
	}

	if _, err := deps.AccountStore.GetByEmail(ctx, form.Email); err == nil {
		return account.Account{}, account.FieldErrors{"email": "An account with this email already exists"}
	} else if !errors.Is(err, account.ErrNotFound) {
		return account.Account{}, err
	}

	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		UserType:  form.UserType,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, err
	}
	if err := acct.SetPassword(form.Password); err != nil {
		return account.Account{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return account.Account{}, account.FieldErrors{"email": "An account with this email already exists"}
		}
		return account.Account{}, err
	}
	slog.Info("auth_event", "event", "account_created", "account_id", acct.ID, "user_type", acct.UserType)

	if deps.EmailSender != nil {
		sendWelcome(ctx, deps.EmailSender, acct, input.LoginURL)
	}
	return acct, nil
}

func sendWelcome(ctx context.Context, sender email.Sender, acct account.Account, loginURL string) {
	req, err := email.WelcomeRequest(acct.Email, email.WelcomeData{
		FirstName: acct.FirstName,
		UserType:  acct.UserType,
		LoginURL:  loginURL,
	})
	if err == nil {
		_, err = sender.Send(ctx, req)
	}
	if err != nil {
		slog.Warn("email_event", "event", "welcome_failed", "account_id", acct.ID, "error", err)
	}
}
