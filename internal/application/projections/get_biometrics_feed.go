package projections

import (
	"context"
	"errors"
	"time"

	"sportsmed/internal/adapters/storage/biometric"
	domainBiometric "sportsmed/internal/domain/biometric"
	domainConsent "sportsmed/internal/domain/consent"
)

// ErrMetricNotAllowed is returned when the requested metric is outside the user's consent.
var ErrMetricNotAllowed = errors.New("metric not covered by consent")

// BiometricsFeedQuery carries query parameters.
type BiometricsFeedQuery struct {
	UserID string
	Metric string // optional; empty means every allowed metric
	Limit  int
	Since  *time.Time // optional; drops observations recorded earlier
}

// BiometricsFeedDeps holds dependencies for BiometricsFeed.
type BiometricsFeedDeps struct {
	ConsentStore   ConsentStore
	BiometricStore BiometricStore
}

// BiometricsFeed is the consent-filtered list of recent observations.
type BiometricsFeed struct {
	Consent      domainConsent.HealthConsent
	Observations []domainBiometric.Observation
}

// QueryBiometricsFeed returns the user's recent observations, newest first.
// PRE: UserID is non-empty
// POST: Returns consent.ErrNotActive without an active consent, ErrMetricNotAllowed for a
// metric outside it, biometric.ErrUnknownMetric for an unknown one
// INVARIANT: Only observations of allowed metrics are returned
func QueryBiometricsFeed(ctx context.Context, query BiometricsFeedQuery, deps BiometricsFeedDeps) (BiometricsFeed, error) {
	var metric domainBiometric.MetricType
	if query.Metric != "" {
		m, err := domainBiometric.ParseMetricType(query.Metric)
		if err != nil {
			return BiometricsFeed{}, err
		}
		metric = m
	}

	c, err := deps.ConsentStore.GetByUserID(ctx, query.UserID)
	if errors.Is(err, domainConsent.ErrNotFound) {
		return BiometricsFeed{}, domainConsent.ErrNotActive
	}
	if err != nil {
		return BiometricsFeed{}, err
	}
	if !c.IsActive() {
		return BiometricsFeed{}, domainConsent.ErrNotActive
	}
	if metric != "" && !c.Allows(metric) {
		return BiometricsFeed{Consent: c}, ErrMetricNotAllowed
	}

	observations, err := deps.BiometricStore.ListRecent(ctx, query.UserID, biometric.ListFilter{
		MetricType: metric,
		Since:      query.Since,
		Limit:      query.Limit,
	})
	if err != nil {
		return BiometricsFeed{}, err
	}
	feed := BiometricsFeed{Consent: c, Observations: make([]domainBiometric.Observation, 0, len(observations))}
	for _, o := range observations {
		if !c.Allows(o.MetricType) || (metric != "" && o.MetricType != metric) {
			continue
		}
		feed.Observations = append(feed.Observations, o)
	}
	return feed, nil
}
