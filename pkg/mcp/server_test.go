package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/services"
)

func newTestServer() *Server {
	logger := zap.NewNop()
	return NewServer("1.0.0", Deps{
		DrillDown: services.NewDrillDownService(nil, logger),
		SQLGuard:  services.NewSQLGuardService(nil, nil, nil, nil, logger),
	}, logger)
}

func toolNames(t *testing.T, s *Server) []string {
	t.Helper()
	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))

	var names []string
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := newTestServer()
	require.NotNil(t, s.MCP())

	assert.ElementsMatch(t,
		[]string{"health", "suggest_drilldowns", "check_sql_denominators"},
		toolNames(t, s))
}

func TestNewServer_Initialize(t *testing.T) {
	s := newTestServer()

	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(), []byte(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, ServerName, resp.Result.ServerInfo.Name)
	assert.Equal(t, "1.0.0", resp.Result.ServerInfo.Version)
}

func TestServer_RegisterTool(t *testing.T) {
	s := newTestServer()

	handlerCalled := false
	s.RegisterTool(mcp.NewTool("extra", mcp.WithDescription("An extra tool")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			handlerCalled = true
			return mcp.NewToolResultText("ok"), nil
		})

	assert.False(t, handlerCalled, "handler should not be called during registration")
	assert.Contains(t, toolNames(t, s), "extra")
}

func TestServer_NewStreamableHTTPServer(t *testing.T) {
	assert.NotNil(t, newTestServer().NewStreamableHTTPServer())
}
