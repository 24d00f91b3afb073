// Package audit records SQL rewrites and suspicious inputs as structured log
// events. Events are logged as JSON under a dedicated logger name so they can
// be filtered and shipped separately from application logs.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/logging"
)

// EventType categorizes audit events for filtering and alerting.
type EventType string

const (
	// EventDenominatorRewrite is logged when a hardcoded denominator is replaced.
	EventDenominatorRewrite EventType = "denominator_rewrite"
	// EventSQLInjectionAttempt is logged when libinjection flags an input.
	EventSQLInjectionAttempt EventType = "sql_injection_attempt"
	// EventUnsafeConfiguration is logged when a configured template value is rejected.
	EventUnsafeConfiguration EventType = "unsafe_configuration"
)

// Event is one auditable occurrence.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	RequestID uuid.UUID `json:"request_id"`
	Source    string    `json:"source,omitempty"` // http, mcp, cli
	Details   any       `json:"details"`
	Severity  string    `json:"severity"` // info, warning, critical
}

// RewriteDetails describes one rewritten query.
type RewriteDetails struct {
	QueryKey     string   `json:"query_key,omitempty"`
	OriginalSQL  string   `json:"original_sql"`
	RewrittenSQL string   `json:"rewritten_sql"`
	Fixes        []string `json:"fixes"`
}

// InjectionDetails describes an input that libinjection flagged.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"`
}

// Auditor writes audit events.
type Auditor struct {
	logger *zap.Logger
}

// NewAuditor creates an auditor logging under the "security_audit" name.
func NewAuditor(logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{logger: logger.Named("security_audit")}
}

// LogDenominatorRewrite records a query whose hardcoded denominators were replaced.
// SQL text is sanitized and truncated before logging.
func (a *Auditor) LogDenominatorRewrite(requestID uuid.UUID, source string, details RewriteDetails) {
	details.OriginalSQL = logging.SanitizeQuery(details.OriginalSQL)
	details.RewrittenSQL = logging.SanitizeQuery(details.RewrittenSQL)

	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: EventDenominatorRewrite,
		RequestID: requestID,
		Source:    source,
		Details:   details,
		Severity:  "warning",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Hardcoded denominator rewritten",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", requestID.String()),
		zap.String("source", source),
		zap.String("query_key", details.QueryKey),
		zap.Int("fix_count", len(details.Fixes)),
		zap.String("severity", "warning"),
	)
}

// LogInjectionAttempt records an input that looks like SQL injection.
// Logged at ERROR with critical severity.
func (a *Auditor) LogInjectionAttempt(requestID uuid.UUID, source string, details InjectionDetails) {
	details.Value = logging.TruncateString(details.Value, logging.MaxQueryLogLength)

	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: EventSQLInjectionAttempt,
		RequestID: requestID,
		Source:    source,
		Details:   details,
		Severity:  "critical",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection pattern detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", requestID.String()),
		zap.String("source", source),
		zap.String("field", details.Field),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", "critical"),
	)
}

// LogUnsafeConfiguration records a configuration value that was rejected at startup.
func (a *Auditor) LogUnsafeConfiguration(setting string, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: EventUnsafeConfiguration,
		RequestID: uuid.Nil,
		Details: map[string]string{
			"setting": setting,
			"error":   logging.SanitizeError(err),
		},
		Severity: "critical",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Unsafe configuration value rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("setting", setting),
		zap.String("severity", "critical"),
	)
}
