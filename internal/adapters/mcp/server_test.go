package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountStore "sportsmed/internal/adapters/storage/account"
	biometricStore "sportsmed/internal/adapters/storage/biometric"
	consentStore "sportsmed/internal/adapters/storage/consent"
	"sportsmed/internal/adapters/storage/storagetest"
	"sportsmed/internal/domain/account"
	"sportsmed/internal/domain/biometric"
	"sportsmed/internal/domain/consent"
)

var testNow = time.Date(2025, 5, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	server     *Server
	consents   *consentStore.SQLStore
	biometrics *biometricStore.SQLStore
}

// setupServer builds a server over a fresh SQLite database with one athlete, "ath1".
func setupServer(t *testing.T) *fixture {
	t.Helper()
	db := storagetest.Open(t)
	ctx := context.Background()

	accounts := accountStore.NewSQLStore(db)
	require.NoError(t, accounts.Save(ctx, account.Account{
		ID:        "ath1",
		Email:     "ath1@example.com",
		FirstName: "Alex",
		LastName:  "Runner",
		UserType:  account.TypeAthlete,
		CreatedAt: testNow,
	}))

	f := &fixture{
		consents:   consentStore.NewSQLStore(db),
		biometrics: biometricStore.NewSQLStore(db),
	}
	f.server = NewServer(Deps{Accounts: accounts, Consents: f.consents, Biometrics: f.biometrics}, "test")
	return f
}

func (f *fixture) grant(t *testing.T, metrics ...string) {
	t.Helper()
	c := consent.HealthConsent{ID: "c-ath1", UserID: "ath1"}
	c.Grant(consent.NewForm(true, false, metrics), testNow.Add(-time.Hour))
	require.NoError(t, f.consents.Upsert(context.Background(), c))
}

func (f *fixture) observe(t *testing.T, id string, m biometric.MetricType, v float64, at time.Time) {
	t.Helper()
	require.NoError(t, f.biometrics.Save(context.Background(), biometric.Observation{
		ID:          id,
		UserID:      "ath1",
		MetricType:  m,
		Value:       v,
		Unit:        biometric.ConfigFor(m).Unit,
		RecordedAt:  at,
		DeviceType:  "watch",
		DeviceModel: "Apple Watch Series 9",
		CreatedAt:   at,
	}))
}

func TestNewServer(t *testing.T) {
	f := setupServer(t)
	require.NotNil(t, f.server.mcpServer)
}

func TestHandleListMetricTypes(t *testing.T) {
	f := setupServer(t)
	_, out, err := f.server.handleListMetricTypes(context.Background(), &mcp.CallToolRequest{}, listMetricTypesInput{})
	require.NoError(t, err)
	assert.Len(t, out.Metrics, len(biometric.AllMetricTypes()))
	for _, m := range out.Metrics {
		assert.NotEmpty(t, m.Unit, "metric %s", m.Type)
	}
}

func TestHandleGetConsent(t *testing.T) {
	f := setupServer(t)
	ctx := context.Background()

	_, out, err := f.server.handleGetConsent(ctx, &mcp.CallToolRequest{}, userInput{User: "ath1"})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.False(t, out.Active)

	f.grant(t, "heart_rate", "steps")
	_, out, err = f.server.handleGetConsent(ctx, &mcp.CallToolRequest{}, userInput{User: "ATH1@example.com"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.True(t, out.Active)
	assert.Equal(t, []string{"heart_rate", "steps"}, out.MetricsAllowed)
	assert.NotEmpty(t, out.ConsentDate)

	_, _, err = f.server.handleGetConsent(ctx, &mcp.CallToolRequest{}, userInput{User: ""})
	assert.ErrorIs(t, err, ErrUserRequired)

	_, _, err = f.server.handleGetConsent(ctx, &mcp.CallToolRequest{}, userInput{User: "nobody"})
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestHandleListBiometrics(t *testing.T) {
	f := setupServer(t)
	ctx := context.Background()
	f.observe(t, "o1", biometric.HeartRate, 72, testNow)
	f.observe(t, "o2", biometric.HeartRate, 75, testNow.Add(-time.Hour))
	f.observe(t, "o3", biometric.Steps, 500, testNow.Add(-30*time.Minute))

	_, _, err := f.server.handleListBiometrics(ctx, &mcp.CallToolRequest{}, listBiometricsInput{User: "ath1"})
	require.Error(t, err, "no consent must mean no data")
	assert.Contains(t, err.Error(), "has not granted biometric consent")

	f.grant(t, "heart_rate")

	tests := []struct {
		name      string
		input     listBiometricsInput
		wantCount int
		wantErr   string
	}{
		{"allowed metrics only", listBiometricsInput{User: "ath1"}, 2, ""},
		{"limit", listBiometricsInput{User: "ath1", Limit: 1}, 1, ""},
		{"metric filter", listBiometricsInput{User: "ath1", MetricType: "heart_rate"}, 2, ""},
		{"metric not allowed", listBiometricsInput{User: "ath1", MetricType: "steps"}, 0, "has not allowed steps"},
		{"unknown metric", listBiometricsInput{User: "ath1", MetricType: "mood"}, 0, "unknown metric type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := f.server.handleListBiometrics(ctx, &mcp.CallToolRequest{}, tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, out.Count)
			for _, o := range out.Observations {
				assert.Equal(t, "heart_rate", o.MetricType)
			}
		})
	}
}

func TestHandleLatestMetric(t *testing.T) {
	f := setupServer(t)
	ctx := context.Background()
	f.grant(t, "heart_rate", "steps", "hrv")
	f.observe(t, "o1", biometric.HeartRate, 72, testNow)
	f.observe(t, "o2", biometric.HeartRate, 75, testNow.Add(-time.Hour))
	f.observe(t, "o3", biometric.Steps, 500, testNow.Add(-30*time.Minute))

	_, out, err := f.server.handleLatestMetric(ctx, &mcp.CallToolRequest{}, latestMetricInput{User: "ath1", MetricType: "heart_rate"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, 72.0, out.Value)
	assert.Equal(t, "72", out.Display)
	assert.Equal(t, "bpm", out.Unit)
	require.NotNil(t, out.InRange)
	assert.True(t, *out.InRange)

	_, out, err = f.server.handleLatestMetric(ctx, &mcp.CallToolRequest{}, latestMetricInput{User: "ath1", MetricType: "hrv"})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, biometric.Placeholder, out.Display)

	_, _, err = f.server.handleLatestMetric(ctx, &mcp.CallToolRequest{}, latestMetricInput{User: "ath1"})
	assert.Error(t, err)
}

func TestHandleCatalogResource(t *testing.T) {
	f := setupServer(t)
	res, err := f.server.handleCatalogResource(context.Background(), &mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, catalogURI, res.Contents[0].URI)

	var body struct {
		Groups []catalogGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &body))
	total := 0
	for _, g := range body.Groups {
		total += len(g.Metrics)
	}
	assert.Equal(t, len(biometric.AllMetricTypes()), total)
}

// TestServer_InMemorySession drives the registered tools through a real client session.
func TestServer_InMemorySession(t *testing.T) {
	f := setupServer(t)
	f.grant(t, "heart_rate")
	f.observe(t, "o1", biometric.HeartRate, 72, testNow)
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := f.server.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_metric_types", "get_consent", "list_biometrics", "latest_metric"}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "latest_metric",
		Arguments: map[string]any{"user": "ath1", "metric_type": "heart_rate"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "latest_metric",
		Arguments: map[string]any{"user": "ath1", "metric_type": "steps"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError, "a metric outside the consent must be a tool error")

	read, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: catalogURI})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	assert.Contains(t, read.Contents[0].Text, "Heart Rate")
}
