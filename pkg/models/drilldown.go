package models

import (
	"slices"
	"sort"
)

// ============================================================================
// Classification Enums
// ============================================================================

// EntityType is the semantic subject of an analyzed result set.
type EntityType string

const (
	EntityTypeTasks       EntityType = "tasks"
	EntityTypeBuilders    EntityType = "builders"
	EntityTypeAttendance  EntityType = "attendance"
	EntityTypeFeedback    EntityType = "feedback"
	EntityTypeSubmissions EntityType = "submissions"
	EntityTypeMixed       EntityType = "mixed"
)

// ValidEntityTypes contains all valid entity type values.
var ValidEntityTypes = []EntityType{
	EntityTypeTasks,
	EntityTypeBuilders,
	EntityTypeAttendance,
	EntityTypeFeedback,
	EntityTypeSubmissions,
	EntityTypeMixed,
}

// IsValidEntityType checks if the given entity type is valid.
func IsValidEntityType(e EntityType) bool {
	return slices.Contains(ValidEntityTypes, e)
}

// AggregationLevel describes how coarsely rows of a result are aggregated.
type AggregationLevel string

const (
	AggregationIndividual AggregationLevel = "individual"
	AggregationDaily      AggregationLevel = "daily"
	AggregationWeekly     AggregationLevel = "weekly"
	AggregationMonthly    AggregationLevel = "monthly"
	AggregationOverall    AggregationLevel = "overall"
)

// MetricType describes the dominant kind of metric in a result.
type MetricType string

const (
	MetricTypeCount      MetricType = "count"
	MetricTypePercentage MetricType = "percentage"
	MetricTypeRate       MetricType = "rate"
	MetricTypeScore      MetricType = "score"
	MetricTypeTrend      MetricType = "trend"
	MetricTypeMixed      MetricType = "mixed"
)

// QueryType is the drill-down family a suggestion belongs to.
type QueryType string

const (
	QueryTypeDetail      QueryType = "detail"
	QueryTypeComparison  QueryType = "comparison"
	QueryTypeCorrelation QueryType = "correlation"
	QueryTypeFilter      QueryType = "filter"
	QueryTypeTemporal    QueryType = "temporal"
)

// ChartType is the visualization a suggestion's follow-up result is expected to use.
type ChartType string

const (
	ChartTypeTable   ChartType = "table"
	ChartTypeBar     ChartType = "bar"
	ChartTypeLine    ChartType = "line"
	ChartTypePie     ChartType = "pie"
	ChartTypeScatter ChartType = "scatter"
)

// ============================================================================
// Result Sets
// ============================================================================

// Row is a single result row keyed by column name.
type Row map[string]any

// ResultSet is a tabular query result. Columns fixes column order; when it is
// empty, the keys of the first row are used in sorted order.
type ResultSet struct {
	Columns []string `json:"columns,omitempty"`
	Rows    []Row    `json:"rows"`
}

// ColumnNames returns the ordered column names of the result set.
func (rs ResultSet) ColumnNames() []string {
	if len(rs.Columns) > 0 {
		return rs.Columns
	}
	if len(rs.Rows) == 0 {
		return nil
	}
	names := make([]string, 0, len(rs.Rows[0]))
	for name := range rs.Rows[0] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamedResultSet is one metric's result in a multi-metric response.
type NamedResultSet struct {
	Name string `json:"name"`
	ResultSet
}

// AnalysisInput is everything the context analyzer looks at for one response.
// When Metrics is non-empty it takes precedence over Result, and only the first
// named set is classified.
type AnalysisInput struct {
	Question string           `json:"question"`
	SQL      string           `json:"sql,omitempty"`
	Result   ResultSet        `json:"result"`
	Metrics  []NamedResultSet `json:"metrics,omitempty"`
}

// ============================================================================
// Drill-Down Context
// ============================================================================

// IdentifiedColumns partitions column names into mutually exclusive buckets.
type IdentifiedColumns struct {
	IDColumns     []string `json:"idColumns"`
	NameColumns   []string `json:"nameColumns"`
	MetricColumns []string `json:"metricColumns"`
	DateColumns   []string `json:"dateColumns"`
}

// DrillDownContext is the semantic shape inferred from one analyzed result.
// It is built once per analysis and never mutated afterwards.
type DrillDownContext struct {
	EntityType          EntityType        `json:"entityType"`
	AggregationLevel    AggregationLevel  `json:"aggregationLevel"`
	MetricType          MetricType        `json:"metricType"`
	ResultCount         int               `json:"resultCount"`
	HasTimeComponent    bool              `json:"hasTimeComponent"`
	HasGrouping         bool              `json:"hasGrouping"`
	HasOutliers         bool              `json:"hasOutliers"`
	HasTrends           bool              `json:"hasTrends"`
	HasComparableGroups bool              `json:"hasComparableGroups"`
	IdentifiedColumns   IdentifiedColumns `json:"identifiedColumns"`
	OriginalQuestion    string            `json:"originalQuestion"`
	SQLQuery            string            `json:"sqlQuery"`
}

// Suggestion is a ranked follow-up question offered after a result is shown.
// Query holds a natural-language instruction meant to be replayed through the
// NL-to-SQL generator, never SQL.
type Suggestion struct {
	ID                string    `json:"id"`
	Label             string    `json:"label"`
	Icon              string    `json:"icon"`
	Query             string    `json:"query"`
	QueryType         QueryType `json:"queryType"`
	ExpectedChartType ChartType `json:"expectedChartType"`
	Priority          int       `json:"priority"`
	Description       string    `json:"description"`
}
