package audit

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func decodeEvent(t *testing.T, entry observer.LoggedEntry) map[string]any {
	t.Helper()
	raw, ok := entry.ContextMap()["event_json"].(string)
	require.True(t, ok, "event_json field missing")

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func TestNewAuditor(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewAuditor(logger)
	require.NotNil(t, auditor)

	auditor.LogUnsafeConfiguration("denominators.cohort", errors.New("bad"))
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "security_audit", recorded.All()[0].LoggerName)

	assert.NotPanics(t, func() {
		NewAuditor(nil).LogUnsafeConfiguration("x", errors.New("y"))
	})
}

func TestLogDenominatorRewrite(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewAuditor(logger)
	requestID := uuid.New()

	auditor.LogDenominatorRewrite(requestID, "http", RewriteDetails{
		QueryKey:     "q1",
		OriginalSQL:  "SELECT COUNT(*) / 75\nFROM users",
		RewrittenSQL: "SELECT COUNT(*) / (" + strings.Repeat("x", 300) + ") FROM users",
		Fixes:        []string{"Replaced hardcoded active builder count (75) with dynamic subquery"},
	})

	logs := recorded.All()
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "Hardcoded denominator rewritten", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, requestID.String(), fields["request_id"])
	assert.Equal(t, "http", fields["source"])
	assert.Equal(t, "q1", fields["query_key"])
	assert.Equal(t, int64(1), fields["fix_count"])

	event := decodeEvent(t, entry)
	assert.Equal(t, string(EventDenominatorRewrite), event["event_type"])
	assert.Equal(t, "warning", event["severity"])

	details := event["details"].(map[string]any)
	assert.Equal(t, "SELECT COUNT(*) / 75 FROM users", details["original_sql"])
	assert.True(t, strings.HasSuffix(details["rewritten_sql"].(string), "..."))
}

func TestLogInjectionAttempt(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewAuditor(logger)

	auditor.LogInjectionAttempt(uuid.New(), "mcp", InjectionDetails{
		Field:       "question",
		Value:       "'; DROP TABLE users--",
		Fingerprint: "s;T",
	})

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	assert.Equal(t, "question", logs[0].ContextMap()["field"])
	assert.Equal(t, "critical", logs[0].ContextMap()["severity"])

	event := decodeEvent(t, logs[0])
	assert.Equal(t, string(EventSQLInjectionAttempt), event["event_type"])
	assert.Equal(t, "mcp", event["source"])
}

func TestLogUnsafeConfiguration(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewAuditor(logger)

	auditor.LogUnsafeConfiguration("denominators.cohort", errors.New("dial postgres://u:secret@db/x failed"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	event := decodeEvent(t, logs[0])
	details := event["details"].(map[string]any)
	assert.Equal(t, "denominators.cohort", details["setting"])
	assert.NotContains(t, details["error"], "secret")
}
