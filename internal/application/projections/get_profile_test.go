package projections

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"sportsmed/internal/application/listutil"
	domainAccount "sportsmed/internal/domain/account"
	domainConsent "sportsmed/internal/domain/consent"
)

var (
	athlete = domainAccount.Account{ID: "a1", Email: "ath@example.com", FirstName: "Alex", LastName: "Runner", UserType: domainAccount.TypeAthlete}
	private = domainAccount.Account{ID: "a2", Email: "priv@example.com", FirstName: "Pat", LastName: "Quiet", UserType: domainAccount.TypeAthlete}
	staff   = domainAccount.Account{ID: "s1", Email: "doc@example.com", FirstName: "Dana", LastName: "Physio", UserType: domainAccount.TypeStaff, StaffApproved: true}
	pending = domainAccount.Account{ID: "s2", Email: "new@example.com", FirstName: "Nico", LastName: "Fresh", UserType: domainAccount.TypeStaff}
)

func TestQueryProfile(t *testing.T) {
	accounts := &mockAccountStore{accounts: []domainAccount.Account{athlete}}
	cs := &mockConsentStore{records: map[string]domainConsent.HealthConsent{
		"a1": activeConsent("a1", true, "heart_rate", "sleep_hours"),
	}}

	view, err := QueryProfile(context.Background(), ProfileQuery{UserID: "a1"}, ProfileDeps{AccountStore: accounts, ConsentStore: cs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.FullName != "Alex Runner" || view.UserType != domainAccount.TypeAthlete {
		t.Errorf("view = %+v", view)
	}
	if !view.Consent.Active || !view.Consent.Sharing {
		t.Errorf("consent = %+v", view.Consent)
	}
	if len(view.Consent.MetricLabels) != 2 || view.Consent.MetricLabels[0] != "Heart Rate" || view.Consent.MetricLabels[1] != "Sleep" {
		t.Errorf("labels = %v", view.Consent.MetricLabels)
	}

	if view.StaffPending {
		t.Error("athlete profile marked as pending staff")
	}
	staffView, err := QueryProfile(context.Background(), ProfileQuery{UserID: "s2"}, ProfileDeps{
		AccountStore: &mockAccountStore{accounts: []domainAccount.Account{pending}}, ConsentStore: cs,
	})
	if err != nil || !staffView.StaffPending {
		t.Errorf("pending staff view = %+v, %v", staffView, err)
	}

	if _, err := QueryProfile(context.Background(), ProfileQuery{UserID: "missing"}, ProfileDeps{AccountStore: accounts, ConsentStore: cs}); !errors.Is(err, domainAccount.ErrNotFound) {
		t.Errorf("missing account err = %v", err)
	}

	view, err = QueryProfile(context.Background(), ProfileQuery{UserID: "a1"}, ProfileDeps{AccountStore: accounts, ConsentStore: &mockConsentStore{err: errStoreDown}})
	if err != nil || view.Consent.Exists {
		t.Errorf("consent failure should leave an empty summary: %+v, %v", view.Consent, err)
	}
}

func TestQueryAthleteList(t *testing.T) {
	deps := AthleteListDeps{
		AccountStore: &mockAccountStore{accounts: []domainAccount.Account{athlete, private, staff, pending}},
		ConsentStore: &mockConsentStore{records: map[string]domainConsent.HealthConsent{
			"a1": activeConsent("a1", true, "steps"),
			"a2": activeConsent("a2", false, "steps"),
		}},
	}
	denied := []struct {
		viewer string
		want   error
	}{
		{"a1", ErrStaffOnly},
		{"", ErrStaffOnly},
		{"gone", ErrStaffOnly},
		{"s2", ErrStaffApprovalPending},
	}
	for _, d := range denied {
		if _, err := QueryAthleteList(context.Background(), AthleteListQuery{ViewerID: d.viewer}, deps); !errors.Is(err, d.want) {
			t.Errorf("viewer %q: err = %v, want %v", d.viewer, err, d.want)
		}
	}

	rows, err := QueryAthleteList(context.Background(), AthleteListQuery{ViewerID: "s1"}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want athletes only", len(rows))
	}
	if !rows[0].Shared || rows[1].Shared || !rows[1].ConsentActive {
		t.Errorf("rows = %+v", rows)
	}
}

func TestPageAthletes(t *testing.T) {
	rows := []AthleteRow{
		{ID: "a1", Name: "Alex Runner", Email: "zed@example.com", Shared: true},
		{ID: "a2", Name: "pat quiet", Email: "pat@example.com"},
		{ID: "a3", Name: "Bea Swimmer", Email: "bea@example.com", Shared: true},
	}
	ids := func(p AthletePage) []string {
		var out []string
		for _, r := range p.Rows {
			out = append(out, r.ID)
		}
		return out
	}
	tests := []struct {
		name   string
		params listutil.Params
		want   []string
	}{
		{"name order ignores case", listutil.Params{Page: 1, PerPage: 20, Sort: "name"}, []string{"a1", "a3", "a2"}},
		{"email descending", listutil.Params{Page: 1, PerPage: 20, Sort: "email", Desc: true}, []string{"a1", "a2", "a3"}},
		{"shared only", listutil.Params{Page: 1, PerPage: 20, Sort: "name", Filters: map[string]string{"sharing": "shared"}}, []string{"a1", "a3"}},
		{"private only", listutil.Params{Page: 1, PerPage: 20, Sort: "name", Filters: map[string]string{"sharing": "private"}}, []string{"a2"}},
		{"search", listutil.Params{Page: 1, PerPage: 20, Sort: "name", Search: "SWIM"}, []string{"a3"}},
		{"second page", listutil.Params{Page: 2, PerPage: 2, Sort: "name"}, []string{"a2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PageAthletes(rows, tt.params)
			if !slices.Equal(ids(got), tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}
	if rows[0].ID != "a1" || rows[1].ID != "a2" {
		t.Error("PageAthletes reordered its input")
	}
}

func TestQueryAthleteDashboard(t *testing.T) {
	revokedLater := activeConsent("a1", true, "heart_rate")
	deps := AthleteDashboardDeps{
		AccountStore: &mockAccountStore{accounts: []domainAccount.Account{athlete, private, staff, pending}},
		ConsentStore: &mockConsentStore{records: map[string]domainConsent.HealthConsent{
			"a1": revokedLater,
			"a2": activeConsent("a2", false, "steps"),
		}},
		BiometricStore: &mockBiometricStore{},
	}
	ctx := context.Background()

	got, err := QueryAthleteDashboard(ctx, AthleteDashboardQuery{ViewerID: "s1", AthleteID: "a1"}, deps)
	if err != nil {
		t.Fatalf("shared athlete: %v", err)
	}
	if got.AthleteName != "Alex Runner" || got.Dashboard.ShowOnboarding || len(got.Dashboard.Cards) != 1 {
		t.Errorf("dashboard = %+v", got)
	}

	cases := []struct {
		name  string
		query AthleteDashboardQuery
		want  error
	}{
		{"not shared", AthleteDashboardQuery{ViewerID: "s1", AthleteID: "a2"}, ErrNotShared},
		{"athlete viewer", AthleteDashboardQuery{ViewerID: "a2", AthleteID: "a1"}, ErrStaffOnly},
		{"unapproved staff", AthleteDashboardQuery{ViewerID: "s2", AthleteID: "a1"}, ErrStaffApprovalPending},
		{"staff target", AthleteDashboardQuery{ViewerID: "s1", AthleteID: "s1"}, domainAccount.ErrNotFound},
	}
	for _, c := range cases {
		if _, err := QueryAthleteDashboard(ctx, c.query, deps); !errors.Is(err, c.want) {
			t.Errorf("%s: err = %v, want %v", c.name, err, c.want)
		}
	}

	revokedLater.Revoke(fixedTime.Add(time.Hour))
	deps.ConsentStore.(*mockConsentStore).records["a1"] = revokedLater
	if _, err := QueryAthleteDashboard(ctx, AthleteDashboardQuery{ViewerID: "s1", AthleteID: "a1"}, deps); !errors.Is(err, ErrNotShared) {
		t.Errorf("revoked: err = %v, want ErrNotShared", err)
	}
}
