package projections

import (
	"context"
	"errors"
	"log/slog"

	domainBiometric "sportsmed/internal/domain/biometric"
	domainConsent "sportsmed/internal/domain/consent"
)

// ConsentOption is one metric checkbox.
type ConsentOption struct {
	Type        domainBiometric.MetricType
	Label       string
	Description string
	Icon        string
	Selected    bool
}

// ConsentGroup is one titled block of checkboxes.
type ConsentGroup struct {
	Name    string
	Options []ConsentOption
}

// ConsentFormView is the consent page view model.
type ConsentFormView struct {
	ConsentGiven       bool
	DataSharingAllowed bool
	Groups             []ConsentGroup
	Count              int
	CountLabel         string
	FetchFailed        bool
}

// ConsentFormQuery carries query parameters.
type ConsentFormQuery struct {
	UserID string
}

// ConsentFormDeps holds dependencies for ConsentForm.
type ConsentFormDeps struct {
	ConsentStore ConsentStore
}

// QueryConsentForm builds the form pre-filled from the user's active consent.
// PRE: none
// POST: Without a user or an active record the form starts empty
func QueryConsentForm(ctx context.Context, query ConsentFormQuery, deps ConsentFormDeps) ConsentFormView {
	if query.UserID == "" {
		return BuildConsentFormView(domainConsent.Form{})
	}
	c, err := deps.ConsentStore.GetByUserID(ctx, query.UserID)
	if err != nil {
		view := BuildConsentFormView(domainConsent.Form{})
		if !errors.Is(err, domainConsent.ErrNotFound) {
			slog.Error("consent_event", "event", "consent_fetch_failed", "user_id", query.UserID, "error", err)
			view.FetchFailed = true
		}
		return view
	}
	return BuildConsentFormView(domainConsent.FormFromConsent(c))
}

// BuildConsentFormView renders a form state into grouped checkboxes.
func BuildConsentFormView(f domainConsent.Form) ConsentFormView {
	view := ConsentFormView{
		ConsentGiven:       f.ConsentGiven,
		DataSharingAllowed: f.DataSharingAllowed,
		Count:              f.Count(),
		CountLabel:         f.CountLabel(),
	}
	for _, g := range domainBiometric.Groups() {
		group := ConsentGroup{Name: g.Name}
		for _, m := range g.Metrics {
			cfg := domainBiometric.ConfigFor(m)
			group.Options = append(group.Options, ConsentOption{
				Type:        m,
				Label:       cfg.Label,
				Description: cfg.Description,
				Icon:        cfg.Icon,
				Selected:    f.IsSelected(m),
			})
		}
		view.Groups = append(view.Groups, group)
	}
	return view
}
