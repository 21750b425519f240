package projections

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"sportsmed/internal/adapters/storage/account"
	"sportsmed/internal/application/listutil"
	domainAccount "sportsmed/internal/domain/account"
	domainConsent "sportsmed/internal/domain/consent"
)

var (
	ErrStaffOnly            = errors.New("only medical staff can view athlete data")
	ErrStaffApprovalPending = errors.New("staff account has not been approved")
	ErrNotShared            = errors.New("athlete has not shared data with medical staff")
)

// authorizeViewer loads the viewer and checks they are approved staff.
// POST: ErrStaffOnly for a missing or non-staff viewer, ErrStaffApprovalPending for unapproved staff
func authorizeViewer(ctx context.Context, store AccountStore, viewerID string) error {
	if viewerID == "" {
		return ErrStaffOnly
	}
	viewer, err := store.GetByID(ctx, viewerID)
	if errors.Is(err, domainAccount.ErrNotFound) {
		return ErrStaffOnly
	}
	if err != nil {
		return err
	}
	if !viewer.IsStaff() {
		return ErrStaffOnly
	}
	if !viewer.CanViewAthletes() {
		slog.Info("athlete_event", "event", "staff_access_denied", "viewer_id", viewer.ID, "reason", "not_approved")
		return ErrStaffApprovalPending
	}
	return nil
}

// AthleteRow is one line of the staff athlete list.
type AthleteRow struct {
	ID            string
	Name          string
	Email         string
	ConsentActive bool
	Shared        bool
}

// AthleteListQuery carries query parameters.
type AthleteListQuery struct {
	ViewerID string
}

// AthleteListDeps holds dependencies for AthleteList.
type AthleteListDeps struct {
	AccountStore AccountStore
	ConsentStore ConsentStore
}

// QueryAthleteList lists athletes with their sharing status.
// PRE: Viewer is approved staff
// POST: Returns ErrStaffOnly or ErrStaffApprovalPending for any other viewer
func QueryAthleteList(ctx context.Context, query AthleteListQuery, deps AthleteListDeps) ([]AthleteRow, error) {
	if err := authorizeViewer(ctx, deps.AccountStore, query.ViewerID); err != nil {
		return nil, err
	}
	athletes, err := deps.AccountStore.List(ctx, account.ListFilter{UserType: domainAccount.TypeAthlete})
	if err != nil {
		return nil, err
	}
	rows := make([]AthleteRow, 0, len(athletes))
	for _, a := range athletes {
		row := AthleteRow{ID: a.ID, Name: a.FullName(), Email: a.Email}
		c, err := deps.ConsentStore.GetByUserID(ctx, a.ID)
		if err != nil && !errors.Is(err, domainConsent.ErrNotFound) {
			slog.Warn("athlete_event", "event", "consent_fetch_failed", "athlete_id", a.ID, "error", err)
		}
		if err == nil {
			row.ConsentActive = c.IsActive()
			row.Shared = c.SharedWithStaff()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AthleteListSpec is the query surface of the athlete list: sort by name or
// e-mail, filter by sharing status.
var AthleteListSpec = listutil.Spec{
	SortColumns: []string{"name", "email"},
	Filters:     map[string][]string{"sharing": {"shared", "private"}},
}

// AthletePage is one page of the filtered athlete list.
type AthletePage struct {
	Rows   []AthleteRow
	Page   listutil.PageInfo
	Params listutil.Params
}

// PageAthletes searches, filters, sorts and pages rows.
// PRE: p was parsed with AthleteListSpec
// POST: Rows holds at most p.PerPage entries; rows is not modified
func PageAthletes(rows []AthleteRow, p listutil.Params) AthletePage {
	matched := make([]AthleteRow, 0, len(rows))
	for _, r := range rows {
		if !p.Matches(r.Name, r.Email) {
			continue
		}
		switch p.Filters["sharing"] {
		case "shared":
			if !r.Shared {
				continue
			}
		case "private":
			if r.Shared {
				continue
			}
		}
		matched = append(matched, r)
	}

	slices.SortStableFunc(matched, func(a, b AthleteRow) int {
		var c int
		if p.Sort == "email" {
			c = cmp.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
		} else {
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if p.Desc {
			return -c
		}
		return c
	})

	page, info := listutil.Paginate(matched, p)
	return AthletePage{Rows: page, Page: info, Params: p}
}

// AthleteDashboardQuery carries query parameters.
type AthleteDashboardQuery struct {
	ViewerID  string
	AthleteID string
	Range     string
}

// AthleteDashboardDeps holds dependencies for AthleteDashboard.
type AthleteDashboardDeps struct {
	AccountStore   AccountStore
	ConsentStore   ConsentStore
	BiometricStore BiometricStore
}

// AthleteDashboard is a staff view of one athlete's metrics.
type AthleteDashboard struct {
	AthleteID   string
	AthleteName string
	Dashboard   BiometricsDashboard
}

// QueryAthleteDashboard renders an athlete's dashboard for medical staff.
// PRE: Viewer is approved staff
// POST: Returns ErrNotShared unless the athlete's consent is active with data sharing allowed
func QueryAthleteDashboard(ctx context.Context, query AthleteDashboardQuery, deps AthleteDashboardDeps) (AthleteDashboard, error) {
	if err := authorizeViewer(ctx, deps.AccountStore, query.ViewerID); err != nil {
		return AthleteDashboard{}, err
	}
	a, err := deps.AccountStore.GetByID(ctx, query.AthleteID)
	if err != nil {
		return AthleteDashboard{}, err
	}
	if a.UserType != domainAccount.TypeAthlete {
		return AthleteDashboard{}, domainAccount.ErrNotFound
	}
	c, err := deps.ConsentStore.GetByUserID(ctx, a.ID)
	if errors.Is(err, domainConsent.ErrNotFound) {
		return AthleteDashboard{}, ErrNotShared
	}
	if err != nil {
		return AthleteDashboard{}, err
	}
	if !c.SharedWithStaff() {
		return AthleteDashboard{}, ErrNotShared
	}

	dash := QueryBiometricsDashboard(ctx, BiometricsDashboardQuery{UserID: a.ID, Range: query.Range}, BiometricsDashboardDeps{
		ConsentStore:   deps.ConsentStore,
		BiometricStore: deps.BiometricStore,
	})
	slog.Info("athlete_event", "event", "athlete_dashboard_viewed", "athlete_id", a.ID, "viewer_id", query.ViewerID)
	return AthleteDashboard{AthleteID: a.ID, AthleteName: a.FullName(), Dashboard: dash}, nil
}
