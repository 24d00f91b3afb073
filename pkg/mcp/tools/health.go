package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResult struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	AuditStore string `json:"audit_store"` // disabled, ok or unavailable
}

// RegisterHealthTool adds a health check tool to the MCP server.
// store may be nil when no audit store is configured.
func RegisterHealthTool(s *server.MCPServer, version string, store Pinger) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and audit store reachability"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version, AuditStore: "disabled"}
		if store != nil {
			result.AuditStore = "ok"
			if err := store.Ping(ctx); err != nil {
				result.AuditStore = "unavailable"
			}
		}
		return jsonResult(result)
	})
}
