package models

import (
	"fmt"

	"github.com/cohortlens/insights-engine/pkg/apperrors"
)

// DrillDownRequest is the wire shape accepted by the HTTP, MCP and CLI surfaces.
// A single result is given as Rows (and optionally Columns); a multi-metric
// response is given as Metrics.
type DrillDownRequest struct {
	Question string           `json:"question"`
	SQL      string           `json:"sql,omitempty"`
	Columns  []string         `json:"columns,omitempty"`
	Rows     []Row            `json:"rows,omitempty"`
	Metrics  []NamedResultSet `json:"metrics,omitempty"`
}

// AnalysisInput converts the request into analyzer input.
func (r DrillDownRequest) AnalysisInput() AnalysisInput {
	return AnalysisInput{
		Question: r.Question,
		SQL:      r.SQL,
		Result:   ResultSet{Columns: r.Columns, Rows: r.Rows},
		Metrics:  r.Metrics,
	}
}

// SQLCheckRequest is either a single check (SQL) or a batch (Queries).
type SQLCheckRequest struct {
	SQL     *string         `json:"sql,omitempty"`
	Queries []BatchSQLQuery `json:"queries,omitempty"`
}

// IsBatch reports whether the request is a batch check.
func (r SQLCheckRequest) IsBatch() bool {
	return r.Queries != nil
}

// Validate checks that exactly one of SQL and Queries is present.
func (r SQLCheckRequest) Validate() error {
	switch {
	case r.SQL != nil && r.Queries != nil:
		return fmt.Errorf("%w: provide either sql or queries, not both", apperrors.ErrInvalidRequest)
	case r.SQL == nil && r.Queries == nil:
		return fmt.Errorf("%w: sql or queries is required", apperrors.ErrInvalidRequest)
	}
	return nil
}
