// Package mcp exposes read-only, consent-respecting health queries over the
// Model Context Protocol (stdio transport).
package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sportsmed/internal/application/projections"
	"sportsmed/internal/domain/account"
)

// ErrUserRequired is returned when a tool call names no user.
var ErrUserRequired = errors.New("user is required (account ID or email)")

// AccountLookup resolves the user named in a tool call.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

// Deps holds the stores the tools read from.
type Deps struct {
	Accounts   AccountLookup
	Consents   projections.ConsentStore
	Biometrics projections.BiometricStore
}

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	deps      Deps
}

// NewServer creates an MCP server with every tool and resource registered.
// PRE: deps holds all three stores
func NewServer(deps Deps, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: "sportsmed", Version: version}, nil),
		deps:      deps,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Serve runs the server on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// resolveUser accepts an account ID or an e-mail address.
func (s *Server) resolveUser(ctx context.Context, user string) (account.Account, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return account.Account{}, ErrUserRequired
	}
	if strings.Contains(user, "@") {
		return s.deps.Accounts.GetByEmail(ctx, strings.ToLower(user))
	}
	return s.deps.Accounts.GetByID(ctx, user)
}
