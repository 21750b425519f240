package orchestrators

import (
	"context"
	"errors"
	"testing"

	"sportsmed/internal/domain/account"
)

func seededAccount(t *testing.T, store *mockAccountStore, password string) account.Account {
	t.Helper()
	acct := account.Account{ID: "acct-1", Email: "pat@example.com", FirstName: "Pat", LastName: "Lane", UserType: account.TypeAthlete}
	if err := acct.SetPassword(password); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	acct.FailedLogins = 3
	store.accounts[acct.Email] = acct
	return acct
}

func TestExecuteChangePassword_Success(t *testing.T) {
	store := newMockAccountStore()
	seededAccount(t, store, "old-password")

	err := ExecuteChangePassword(context.Background(), ChangePasswordInput{
		AccountID: "acct-1", CurrentPassword: "old-password", NewPassword: "new-password", ConfirmPassword: "new-password",
	}, ChangePasswordDeps{AccountStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := store.accounts["pat@example.com"]
	if got.CheckPassword("new-password") != nil {
		t.Error("new password does not verify")
	}
	if got.CheckPassword("old-password") == nil {
		t.Error("old password still verifies")
	}
	if got.FailedLogins != 0 {
		t.Errorf("FailedLogins = %d, want 0", got.FailedLogins)
	}
}

func TestExecuteChangePassword_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input ChangePasswordInput
		want  error
	}{
		{"mismatch", ChangePasswordInput{AccountID: "acct-1", CurrentPassword: "old-password", NewPassword: "new-password", ConfirmPassword: "other-password"}, ErrPasswordMismatch},
		{"wrong current", ChangePasswordInput{AccountID: "acct-1", CurrentPassword: "guess-guess", NewPassword: "new-password", ConfirmPassword: "new-password"}, ErrCurrentPasswordWrong},
		{"same", ChangePasswordInput{AccountID: "acct-1", CurrentPassword: "old-password", NewPassword: "old-password", ConfirmPassword: "old-password"}, ErrNewPasswordSame},
		{"too short", ChangePasswordInput{AccountID: "acct-1", CurrentPassword: "old-password", NewPassword: "short", ConfirmPassword: "short"}, account.ErrPasswordTooShort},
		{"unknown account", ChangePasswordInput{AccountID: "ghost", CurrentPassword: "old-password", NewPassword: "new-password", ConfirmPassword: "new-password"}, account.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockAccountStore()
			seededAccount(t, store, "old-password")
			err := ExecuteChangePassword(context.Background(), tt.input, ChangePasswordDeps{AccountStore: store})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if store.saves != 0 {
				t.Errorf("saves = %d, want 0", store.saves)
			}
		})
	}
}
