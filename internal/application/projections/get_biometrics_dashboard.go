package projections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"sportsmed/internal/adapters/storage/biometric"
	domainBiometric "sportsmed/internal/domain/biometric"
	domainConsent "sportsmed/internal/domain/consent"
)

// MaxDashboardCards caps the metric grid.
const MaxDashboardCards = 4

// Range selects a detail tab.
type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

// ParseRange maps a query parameter to a Range, defaulting to today.
func ParseRange(s string) Range {
	switch Range(s) {
	case RangeWeek, RangeMonth, RangeYear:
		return Range(s)
	}
	return RangeToday
}

// DashboardTab is one entry of the detail tab strip.
type DashboardTab struct {
	Range      Range
	Label      string
	EmptyTitle string
	EmptyHint  string
	Active     bool
}

// MetricCard is one tile of the metric grid.
type MetricCard struct {
	Type        domainBiometric.MetricType
	Label       string
	Unit        string
	Icon        string
	Value       string
	HasValue    bool
	NormalRange string // empty unless the metric has a range and a value is present
}

// OnboardingTile is a feature tile shown before consent.
type OnboardingTile struct {
	Icon  string
	Label string
}

// OnboardingTiles are shown on the onboarding panel.
var OnboardingTiles = []OnboardingTile{
	{Icon: "heart", Label: "Heart Rate"},
	{Icon: "activity", Label: "Activity"},
	{Icon: "flame", Label: "Calories"},
	{Icon: "moon", Label: "Sleep"},
}

// OnboardingFeatures are the bullet points of the onboarding panel.
var OnboardingFeatures = []string{
	"Real-time health monitoring",
	"Personalized insights and trends",
	"Share data with medical professionals",
	"Secure and private data storage",
}

// BiometricsDashboardQuery carries query parameters.
type BiometricsDashboardQuery struct {
	UserID string
	Range  string
}

// BiometricsDashboardDeps holds dependencies for BiometricsDashboard.
type BiometricsDashboardDeps struct {
	ConsentStore   ConsentStore
	BiometricStore BiometricStore
}

// BiometricsDashboard is the dashboard view model.
type BiometricsDashboard struct {
	ShowOnboarding bool
	FetchFailed    bool // a store read failed; the page shows a generic notice
	Cards          []MetricCard
	Tabs           []DashboardTab
	ActiveRange    Range
}

// QueryBiometricsDashboard decides between onboarding and the metric grid.
// PRE: none
// POST: ShowOnboarding is true, with no cards, unless the user holds an active consent
// INVARIANT: At most MaxDashboardCards cards, taken from MetricsAllowed in stored order
func QueryBiometricsDashboard(ctx context.Context, query BiometricsDashboardQuery, deps BiometricsDashboardDeps) BiometricsDashboard {
	view := BiometricsDashboard{ShowOnboarding: true, ActiveRange: ParseRange(query.Range)}
	view.Tabs = dashboardTabs(view.ActiveRange)
	if query.UserID == "" {
		return view
	}

	c, err := deps.ConsentStore.GetByUserID(ctx, query.UserID)
	if err != nil {
		if !errors.Is(err, domainConsent.ErrNotFound) {
			slog.Error("dashboard_event", "event", "consent_fetch_failed", "user_id", query.UserID, "error", err)
			view.FetchFailed = true
		}
		return view
	}
	if !c.IsActive() {
		return view
	}
	view.ShowOnboarding = false

	observations, err := deps.BiometricStore.ListRecent(ctx, query.UserID, biometric.ListFilter{Limit: domainBiometric.DefaultRecentLimit})
	if err != nil {
		slog.Error("dashboard_event", "event", "biometric_fetch_failed", "user_id", query.UserID, "error", err)
		view.FetchFailed = true
		observations = nil
	}
	view.Cards = BuildMetricCards(c.MetricsAllowed, observations)
	return view
}

// BuildMetricCards renders the first MaxDashboardCards allowed metrics.
// PRE: observations are ordered newest first
// POST: len(result) == min(len(allowed), MaxDashboardCards)
func BuildMetricCards(allowed []domainBiometric.MetricType, observations []domainBiometric.Observation) []MetricCard {
	n := len(allowed)
	if n > MaxDashboardCards {
		n = MaxDashboardCards
	}
	cards := make([]MetricCard, 0, n)
	for _, m := range allowed[:n] {
		cfg := domainBiometric.ConfigFor(m)
		card := MetricCard{
			Type:  m,
			Label: cfg.Label,
			Unit:  cfg.Unit,
			Icon:  cfg.Icon,
			Value: domainBiometric.Placeholder,
		}
		if v, ok := domainBiometric.LatestValue(observations, m); ok {
			card.Value = domainBiometric.FormatValue(v)
			card.HasValue = true
			if r := cfg.NormalRange; r != nil {
				card.NormalRange = fmt.Sprintf("Normal: %s-%s %s", formatBound(r.Min), formatBound(r.Max), cfg.Unit)
			}
		}
		cards = append(cards, card)
	}
	return cards
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func dashboardTabs(active Range) []DashboardTab {
	tabs := []DashboardTab{
		{Range: RangeToday, Label: "Today", EmptyTitle: "No data available for today"},
		{Range: RangeWeek, Label: "Week", EmptyTitle: "No data available for this week"},
		{Range: RangeMonth, Label: "Month", EmptyTitle: "No data available for this month"},
		{Range: RangeYear, Label: "Year", EmptyTitle: "No data available for this year"},
	}
	for i := range tabs {
		tabs[i].EmptyHint = "Connect your Apple Watch to start tracking"
		tabs[i].Active = tabs[i].Range == active
	}
	return tabs
}
