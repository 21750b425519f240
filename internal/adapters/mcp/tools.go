package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sportsmed/internal/application/projections"
	"sportsmed/internal/domain/biometric"
	"sportsmed/internal/domain/consent"
)

const (
	defaultListLimit = 20
	maxListLimit     = biometric.DefaultRecentLimit
)

func (s *Server) registerTools() {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_metric_types",
		Description: "List every trackable health metric with its label, unit and normal range",
		Annotations: readOnly,
	}, s.handleListMetricTypes)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_consent",
		Description: "Show a user's biometric consent: whether it is active, which metrics are allowed and whether staff may view them",
		Annotations: readOnly,
	}, s.handleGetConsent)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_biometrics",
		Description: "List a user's recent observations, newest first. Only metrics the user consented to are returned",
		Annotations: readOnly,
	}, s.handleListBiometrics)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "latest_metric",
		Description: "Get the most recent value of one metric for a user, if consent allows it",
		Annotations: readOnly,
	}, s.handleLatestMetric)
}

// Tool input/output types

type listMetricTypesInput struct{}

type metricTypesOutput struct {
	Metrics []biometric.Config `json:"metrics"`
}

type userInput struct {
	User string `json:"user" jsonschema:"Account ID or e-mail address of the user"`
}

type consentOutput struct {
	UserID             string   `json:"user_id"`
	Found              bool     `json:"found"`
	Active             bool     `json:"active"`
	MetricsAllowed     []string `json:"metrics_allowed"`
	DataSharingAllowed bool     `json:"data_sharing_allowed"`
	ConsentDate        string   `json:"consent_date,omitempty"`
	RevokedAt          string   `json:"revoked_at,omitempty"`
}

type listBiometricsInput struct {
	User       string `json:"user" jsonschema:"Account ID or e-mail address of the user"`
	MetricType string `json:"metric_type,omitempty" jsonschema:"Only return this metric, e.g. heart_rate"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Max results (default 20, max 100)"`
}

type observationOutput struct {
	MetricType string  `json:"metric_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	RecordedAt string  `json:"recorded_at"`
	Device     string  `json:"device,omitempty"`
}

type biometricsOutput struct {
	UserID       string              `json:"user_id"`
	Count        int                 `json:"count"`
	Observations []observationOutput `json:"observations"`
}

type latestMetricInput struct {
	User       string `json:"user" jsonschema:"Account ID or e-mail address of the user"`
	MetricType string `json:"metric_type" jsonschema:"Metric to read, e.g. heart_rate"`
}

type latestMetricOutput struct {
	UserID     string  `json:"user_id"`
	MetricType string  `json:"metric_type"`
	Found      bool    `json:"found"`
	Value      float64 `json:"value"`
	Display    string  `json:"display"`
	Unit       string  `json:"unit"`
	InRange    *bool   `json:"in_normal_range,omitempty"`
}

// Tool handlers

func (s *Server) handleListMetricTypes(ctx context.Context, req *mcp.CallToolRequest, input listMetricTypesInput) (*mcp.CallToolResult, metricTypesOutput, error) {
	return nil, metricTypesOutput{Metrics: biometric.Catalog()}, nil
}

func (s *Server) handleGetConsent(ctx context.Context, req *mcp.CallToolRequest, input userInput) (*mcp.CallToolResult, consentOutput, error) {
	acct, err := s.resolveUser(ctx, input.User)
	if err != nil {
		return nil, consentOutput{}, fmt.Errorf("failed to find user: %w", err)
	}

	c, err := s.deps.Consents.GetByUserID(ctx, acct.ID)
	if errors.Is(err, consent.ErrNotFound) {
		return nil, consentOutput{UserID: acct.ID, MetricsAllowed: []string{}}, nil
	}
	if err != nil {
		return nil, consentOutput{}, fmt.Errorf("failed to read consent: %w", err)
	}

	out := consentOutput{
		UserID:             acct.ID,
		Found:              true,
		Active:             c.IsActive(),
		MetricsAllowed:     make([]string, 0, len(c.MetricsAllowed)),
		DataSharingAllowed: c.DataSharingAllowed,
	}
	for _, m := range c.MetricsAllowed {
		out.MetricsAllowed = append(out.MetricsAllowed, string(m))
	}
	if c.ConsentDate != nil {
		out.ConsentDate = c.ConsentDate.Format(timeLayout)
	}
	if c.RevokedAt != nil {
		out.RevokedAt = c.RevokedAt.Format(timeLayout)
	}
	return nil, out, nil
}

func (s *Server) handleListBiometrics(ctx context.Context, req *mcp.CallToolRequest, input listBiometricsInput) (*mcp.CallToolResult, biometricsOutput, error) {
	acct, err := s.resolveUser(ctx, input.User)
	if err != nil {
		return nil, biometricsOutput{}, fmt.Errorf("failed to find user: %w", err)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	feed, err := s.feed(ctx, acct.ID, input.MetricType, limit)
	if err != nil {
		return nil, biometricsOutput{}, err
	}
	out := biometricsOutput{UserID: acct.ID, Observations: make([]observationOutput, 0, len(feed.Observations))}
	for _, o := range feed.Observations {
		out.Observations = append(out.Observations, observationOutput{
			MetricType: string(o.MetricType),
			Value:      o.Value,
			Unit:       o.Unit,
			RecordedAt: o.RecordedAt.Format(timeLayout),
			Device:     o.DeviceModel,
		})
	}
	out.Count = len(out.Observations)
	return nil, out, nil
}

func (s *Server) handleLatestMetric(ctx context.Context, req *mcp.CallToolRequest, input latestMetricInput) (*mcp.CallToolResult, latestMetricOutput, error) {
	if input.MetricType == "" {
		return nil, latestMetricOutput{}, fmt.Errorf("metric_type is required")
	}
	acct, err := s.resolveUser(ctx, input.User)
	if err != nil {
		return nil, latestMetricOutput{}, fmt.Errorf("failed to find user: %w", err)
	}

	feed, err := s.feed(ctx, acct.ID, input.MetricType, 1)
	if err != nil {
		return nil, latestMetricOutput{}, err
	}
	m, _ := biometric.ParseMetricType(input.MetricType)
	cfg := biometric.ConfigFor(m)
	out := latestMetricOutput{
		UserID:     acct.ID,
		MetricType: string(m),
		Unit:       cfg.Unit,
		Display:    biometric.Placeholder,
	}
	if v, ok := biometric.LatestValue(feed.Observations, m); ok {
		out.Found = true
		out.Value = v
		out.Display = biometric.FormatValue(v)
		if cfg.NormalRange != nil {
			in := cfg.NormalRange.Contains(v)
			out.InRange = &in
		}
	}
	return nil, out, nil
}

// feed runs the consent-filtered biometrics query and turns its sentinel errors into tool errors.
func (s *Server) feed(ctx context.Context, userID, metric string, limit int) (projections.BiometricsFeed, error) {
	feed, err := projections.QueryBiometricsFeed(ctx, projections.BiometricsFeedQuery{
		UserID: userID,
		Metric: metric,
		Limit:  limit,
	}, projections.BiometricsFeedDeps{
		ConsentStore:   s.deps.Consents,
		BiometricStore: s.deps.Biometrics,
	})
	switch {
	case err == nil:
		slog.Debug("mcp_event", "event", "biometrics_read", "user_id", userID, "metric", metric, "count", len(feed.Observations))
		return feed, nil
	case errors.Is(err, biometric.ErrUnknownMetric):
		return feed, fmt.Errorf("unknown metric type: %s", metric)
	case errors.Is(err, consent.ErrNotActive):
		return feed, fmt.Errorf("user %s has not granted biometric consent", userID)
	case errors.Is(err, projections.ErrMetricNotAllowed):
		return feed, fmt.Errorf("user %s has not allowed %s", userID, metric)
	default:
		return feed, fmt.Errorf("failed to list biometrics: %w", err)
	}
}
