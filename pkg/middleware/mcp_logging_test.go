package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serveMCP(t *testing.T, logger *zap.Logger, reqBody, respBody string) *httptest.ResponseRecorder {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, reqBody, string(body), "request body is restored for the next handler")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respBody))
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	rec := httptest.NewRecorder()
	MCPRequestLogger(logger)(handler).ServeHTTP(rec, req)
	return rec
}

func TestMCPRequestLogger(t *testing.T) {
	tests := []struct {
		name        string
		reqBody     string
		respBody    string
		wantMessage string
	}{
		{
			name:        "successful tool call",
			reqBody:     `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"check_sql_denominators","arguments":{"sql":"SELECT 1 / 75"}}}`,
			respBody:    `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`,
			wantMessage: "MCP response success",
		},
		{
			name:        "json-rpc error",
			reqBody:     `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"check_sql_denominators","arguments":{}}}`,
			respBody:    `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`,
			wantMessage: "MCP response error",
		},
		{
			name:        "tool error result",
			reqBody:     `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"check_sql_denominators","arguments":{}}}`,
			respBody:    `{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"{\"error\":true}"}]}}`,
			wantMessage: "MCP tool error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			rec := serveMCP(t, zap.New(core), tt.reqBody, tt.respBody)

			assert.Equal(t, tt.respBody, rec.Body.String())
			require.Equal(t, 2, logs.Len())

			requestLog := logs.All()[0]
			assert.Equal(t, "MCP request", requestLog.Message)
			assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
			assert.Equal(t, "check_sql_denominators", requestLog.ContextMap()["tool"])

			assert.Equal(t, tt.wantMessage, logs.All()[1].Message)
		})
	}
}

func TestMCPRequestLogger_NonJSONResponse(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	serveMCP(t, zap.New(core), `{"method":"ping"}`, "not json")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "Failed to parse MCP response JSON", logs.All()[1].Message)
}

func TestSanitizeArguments(t *testing.T) {
	longSQL := "SELECT\n  " + strings.Repeat("col, ", 50) + "x FROM t"
	got := sanitizeArguments(map[string]any{
		"sql":         longSQL,
		"question":    strings.Repeat("q", 250),
		"api_key":     "abc",
		"db_password": "hunter2",
		"limit":       float64(3),
	})

	assert.Equal(t, "[REDACTED]", got["api_key"])
	assert.Equal(t, "[REDACTED]", got["db_password"])
	assert.Equal(t, float64(3), got["limit"])
	assert.Len(t, got["question"], maxArgumentLogLength+3)

	sqlArg := got["sql"].(string)
	assert.NotContains(t, sqlArg, "\n")
	assert.True(t, strings.HasSuffix(sqlArg, "..."))

	assert.Nil(t, sanitizeArguments(nil))
}
