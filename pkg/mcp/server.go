// Package mcp exposes the drill-down and denominator services as MCP tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/mcp/tools"
	"github.com/cohortlens/insights-engine/pkg/services"
)

// ServerName is advertised to MCP clients during initialization.
const ServerName = "insights-engine"

// Deps are the services the MCP tools call into.
type Deps struct {
	DrillDown  services.DrillDownService
	SQLGuard   services.SQLGuardService
	AuditStore tools.Pinger // nil when no audit store is configured
}

// Server wraps the mcp-go MCPServer with the engine's tools registered.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server with every engine tool registered.
func NewServer(version string, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	tools.RegisterHealthTool(mcpServer, version, deps.AuditStore)
	tools.RegisterDrillDownTools(mcpServer, &tools.DrillDownToolDeps{Service: deps.DrillDown})
	tools.RegisterSQLGuardTools(mcpServer, &tools.SQLGuardToolDeps{Service: deps.SQLGuard})

	logger = logger.Named("mcp")
	logger.Debug("Registered MCP tools", zap.String("version", version))

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool registers an additional tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
