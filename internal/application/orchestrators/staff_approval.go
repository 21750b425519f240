package orchestrators

import (
	"context"
	"log/slog"

	"sportsmed/internal/domain/account"
)

// StaffApprovalInput names the staff account and the access to set.
type StaffApprovalInput struct {
	Email    string
	Approved bool
}

// AccountStoreForStaffApproval defines the store interface needed by StaffApproval.
type AccountStoreForStaffApproval interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// StaffApprovalDeps holds dependencies for StaffApproval.
type StaffApprovalDeps struct {
	AccountStore AccountStoreForStaffApproval
}

// ExecuteStaffApproval grants or withdraws a staff account's access to athletes' shared data.
// PRE: Email names an existing staff account
// POST: The stored account's StaffApproved equals input.Approved; account.ErrNotStaff for athletes
// INVARIANT: Nothing is saved when the account is not staff
func ExecuteStaffApproval(ctx context.Context, input StaffApprovalInput, deps StaffApprovalDeps) (account.Account, error) {
	acct, err := deps.AccountStore.GetByEmail(ctx, input.Email)
	if err != nil {
		return account.Account{}, err
	}
	if err := acct.SetStaffApproval(input.Approved); err != nil {
		return account.Account{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}
	event := "staff_approved"
	if !input.Approved {
		event = "staff_approval_withdrawn"
	}
	slog.Info("auth_event", "event", event, "account_id", acct.ID, "email", acct.Email)
	return acct, nil
}
