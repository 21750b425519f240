package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sportsmed/internal/adapters/storage"
	"sportsmed/internal/application/orchestrators"
)

func newStaffCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage medical staff access to athletes' shared data",
		Long: `Staff accounts created through the sign-up form start unapproved and cannot
open the athlete list or any athlete dashboard. Approve them here once their
credentials have been checked.

  $ sportsmed staff approve dr.ruiz@clinic.example
  $ sportsmed staff revoke dr.ruiz@clinic.example

Changes apply to the athlete pages at once; the staff member signs in again to
pick up a new approval.`,
	}
	cmd.AddCommand(
		newStaffApprovalCmd(a, "approve", "Allow a staff account to view shared athlete data", true),
		newStaffApprovalCmd(a, "revoke", "Withdraw a staff account's access to athlete data", false),
	)
	return cmd
}

func newStaffApprovalCmd(a *app, use, short string, approved bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := storage.MigrateDB(ctx, db, db.Dialect()); err != nil {
				return err
			}

			acct, err := orchestrators.ExecuteStaffApproval(ctx, orchestrators.StaffApprovalInput{
				Email:    args[0],
				Approved: approved,
			}, orchestrators.StaffApprovalDeps{AccountStore: newStores(db).AccountStore})
			if err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}

			out := cmd.OutOrStdout()
			if approved {
				color.New(color.FgGreen).Fprintf(out, "approved %s (%s)\n", acct.Email, acct.FullName())
			} else {
				color.New(color.FgYellow).Fprintf(out, "revoked %s (%s)\n", acct.Email, acct.FullName())
			}
			return nil
		},
	}
}
