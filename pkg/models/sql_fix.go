package models

import (
	"time"

	"github.com/google/uuid"
)

// DenominatorFamily identifies which live count a hardcoded divisor stood in for.
type DenominatorFamily string

const (
	DenominatorClassDays      DenominatorFamily = "class_days"
	DenominatorActiveBuilders DenominatorFamily = "active_builders"
	DenominatorTotalTasks     DenominatorFamily = "total_tasks"
)

// Description returns the human-readable family name used in fix descriptions.
func (f DenominatorFamily) Description() string {
	switch f {
	case DenominatorClassDays:
		return "class day count"
	case DenominatorActiveBuilders:
		return "active builder count"
	case DenominatorTotalTasks:
		return "total task count"
	default:
		return string(f)
	}
}

// Request sources recorded on audit events and persisted records.
const (
	SourceHTTP = "http"
	SourceMCP  = "mcp"
	SourceCLI  = "cli"
)

// SQLFixResult is the outcome of checking one SQL text for hardcoded denominators.
// When HadIssues is false, SQL is byte-identical to the input.
type SQLFixResult struct {
	SQL       string   `json:"sql"`
	HadIssues bool     `json:"hadIssues"`
	Fixes     []string `json:"fixes"`
}

// BatchSQLQuery is one caller-identified entry of a batch check.
type BatchSQLQuery struct {
	ID  string `json:"id"`
	SQL string `json:"sql"`
}

// BatchSQLFixResult is the result for one batch entry, keyed by the caller's id.
type BatchSQLFixResult struct {
	ID string `json:"id"`
	SQLFixResult
}

// SQLFixAuditRecord is a persisted record of one rewritten query.
type SQLFixAuditRecord struct {
	ID           uuid.UUID `json:"id"`
	RequestID    uuid.UUID `json:"request_id"`
	QueryKey     string    `json:"query_key,omitempty"` // Batch id, empty for single checks
	Source       string    `json:"source"`              // http, mcp, cli
	OriginalSQL  string    `json:"original_sql"`
	RewrittenSQL string    `json:"rewritten_sql"`
	Fixes        []string  `json:"fixes"`
	CreatedAt    time.Time `json:"created_at"`
}
