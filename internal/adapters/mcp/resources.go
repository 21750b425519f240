package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sportsmed/internal/domain/biometric"
)

const (
	catalogURI = "sportsmed://catalog"
	timeLayout = time.RFC3339
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         catalogURI,
		Name:        "Metric Catalog",
		Description: "Every trackable metric with its display group, unit and normal range",
		MIMEType:    "application/json",
	}, s.handleCatalogResource)
}

type catalogGroup struct {
	Name    string             `json:"name"`
	Metrics []biometric.Config `json:"metrics"`
}

func (s *Server) handleCatalogResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	groups := biometric.Groups()
	out := make([]catalogGroup, 0, len(groups))
	for _, g := range groups {
		cg := catalogGroup{Name: g.Name}
		for _, m := range g.Metrics {
			cg.Metrics = append(cg.Metrics, biometric.ConfigFor(m))
		}
		out = append(out, cg)
	}

	data, err := json.MarshalIndent(map[string]any{"groups": out}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      catalogURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
