// Package drilldown infers the semantic shape of a query result and turns it into
// ranked follow-up questions. Everything in this package is a pure function of its
// input and safe for concurrent use.
package drilldown

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/cohortlens/insights-engine/pkg/models"
)

// analysisSignals is the pre-computed input that the ordered classification rules read.
type analysisSignals struct {
	lowerColumns []string
	columnSet    map[string]bool
	question     string // lower-cased
	sqlTables    map[string]bool
	rowCount     int
	identified   models.IdentifiedColumns
}

func (s *analysisSignals) hasColumn(names ...string) bool {
	for _, name := range names {
		if s.columnSet[name] {
			return true
		}
	}
	return false
}

func (s *analysisSignals) hasTable(roots ...string) bool {
	for _, root := range roots {
		if s.sqlTables[root] {
			return true
		}
	}
	return false
}

// ============================================================================
// Entity Type Rules
// ============================================================================

type entityRule struct {
	name   string
	entity models.EntityType
	match  func(s *analysisSignals) bool
}

// entityRules is evaluated top to bottom; the first match wins.
// Column markers beat question keywords, which beat SQL table names.
var entityRules = []entityRule{
	{"task_columns", models.EntityTypeTasks, func(s *analysisSignals) bool {
		return s.hasColumn("task_id", "task_title")
	}},
	{"builder_columns", models.EntityTypeBuilders, func(s *analysisSignals) bool {
		return s.hasColumn("user_id", "first_name", "last_name")
	}},
	{"attendance_columns", models.EntityTypeAttendance, func(s *analysisSignals) bool {
		return s.hasColumn("attendance_date", "check_in_time")
	}},
	{"feedback_columns", models.EntityTypeFeedback, func(s *analysisSignals) bool {
		return s.hasColumn("referral_likelihood", "what_we_did_well")
	}},
	{"feedback_question", models.EntityTypeFeedback, func(s *analysisSignals) bool {
		return containsAny(s.question, "feedback", "nps")
	}},
	{"task_question", models.EntityTypeTasks, func(s *analysisSignals) bool {
		return strings.Contains(s.question, "task") && !strings.Contains(s.question, "completion")
	}},
	{"builder_question", models.EntityTypeBuilders, func(s *analysisSignals) bool {
		return containsAny(s.question, "builder", "student", "performer")
	}},
	{"attendance_question", models.EntityTypeAttendance, func(s *analysisSignals) bool {
		return containsAny(s.question, "attendance", "absent", "present")
	}},
	{"submission_tables", models.EntityTypeSubmissions, func(s *analysisSignals) bool {
		return s.hasTable("task_submission")
	}},
	{"feedback_tables", models.EntityTypeFeedback, func(s *analysisSignals) bool {
		return s.hasTable("builder_feedback", "feedback")
	}},
	{"attendance_tables", models.EntityTypeAttendance, func(s *analysisSignals) bool {
		return s.hasTable("builder_attendance_new", "builder_attendance", "attendance")
	}},
	{"task_tables", models.EntityTypeTasks, func(s *analysisSignals) bool {
		return s.hasTable("task", "task_analysis", "task_builder_assignment")
	}},
	{"builder_tables", models.EntityTypeBuilders, func(s *analysisSignals) bool {
		return s.hasTable("user", "builder")
	}},
}

func resolveEntityType(s *analysisSignals) models.EntityType {
	for _, rule := range entityRules {
		if rule.match(s) {
			return rule.entity
		}
	}
	return models.EntityTypeMixed
}

// ============================================================================
// Aggregation Level Rules
// ============================================================================

type aggregationRule struct {
	level models.AggregationLevel
	match func(s *analysisSignals) bool
}

var aggregationRules = []aggregationRule{
	{models.AggregationIndividual, func(s *analysisSignals) bool {
		return len(s.identified.IDColumns) > 0 && len(s.identified.NameColumns) > 0 && s.rowCount > 1
	}},
	{models.AggregationDaily, func(s *analysisSignals) bool {
		return anyColumnContains(s.lowerColumns, "day_number", "day_date")
	}},
	{models.AggregationWeekly, func(s *analysisSignals) bool {
		return anyColumnContains(s.lowerColumns, "week")
	}},
	{models.AggregationMonthly, func(s *analysisSignals) bool {
		return anyColumnContains(s.lowerColumns, "month")
	}},
	{models.AggregationOverall, func(s *analysisSignals) bool {
		return s.rowCount == 1 && len(s.identified.MetricColumns) > 0
	}},
}

func resolveAggregationLevel(s *analysisSignals) models.AggregationLevel {
	for _, rule := range aggregationRules {
		if rule.match(s) {
			return rule.level
		}
	}
	return models.AggregationIndividual
}

// ============================================================================
// Metric Type Rules
// ============================================================================

// metricKeywords mark a column name as carrying a metric.
var metricKeywords = []string{"count", "rate", "percent", "pct", "score", "avg", "total"}

type metricRule struct {
	metric   models.MetricType
	keywords []string
}

var metricRules = []metricRule{
	{models.MetricTypePercentage, []string{"percent", "rate", "pct"}},
	{models.MetricTypeCount, []string{"count", "total"}},
	{models.MetricTypeScore, []string{"score"}},
}

func resolveMetricType(s *analysisSignals) models.MetricType {
	var metricNames []string
	for _, col := range s.lowerColumns {
		if containsAny(col, metricKeywords...) {
			metricNames = append(metricNames, col)
		}
	}
	for _, rule := range metricRules {
		if anyColumnContains(metricNames, rule.keywords...) {
			return rule.metric
		}
	}
	return models.MetricTypeMixed
}

// timeKeywords mark a column as a time axis.
var timeKeywords = []string{"date", "day_number", "week", "month", "time"}

// ============================================================================
// Analyzer
// ============================================================================

// AnalyzeContext classifies a query response into a DrillDownContext.
// In multi-metric mode only the first named result set is classified.
// An empty result yields the mixed/all-false defaults.
func AnalyzeContext(input models.AnalysisInput) models.DrillDownContext {
	rs := input.Result
	if len(input.Metrics) > 0 {
		rs = input.Metrics[0].ResultSet
	}
	return AnalyzeResultSet(input.Question, input.SQL, rs)
}

// AnalyzeResultSet classifies a single result set.
func AnalyzeResultSet(question, sqlQuery string, rs models.ResultSet) models.DrillDownContext {
	ctx := models.DrillDownContext{
		EntityType:       models.EntityTypeMixed,
		AggregationLevel: models.AggregationIndividual,
		MetricType:       models.MetricTypeMixed,
		ResultCount:      len(rs.Rows),
		IdentifiedColumns: models.IdentifiedColumns{
			IDColumns:     []string{},
			NameColumns:   []string{},
			MetricColumns: []string{},
			DateColumns:   []string{},
		},
		OriginalQuestion: question,
		SQLQuery:         sqlQuery,
	}
	if len(rs.Rows) == 0 {
		return ctx
	}

	columns := rs.ColumnNames()
	lowerColumns := lowerAll(columns)
	columnSet := make(map[string]bool, len(lowerColumns))
	for _, col := range lowerColumns {
		columnSet[col] = true
	}

	s := &analysisSignals{
		lowerColumns: lowerColumns,
		columnSet:    columnSet,
		question:     strings.ToLower(question),
		sqlTables:    sqlTableRoots(sqlQuery),
		rowCount:     len(rs.Rows),
		identified:   ClassifyColumns(rs),
	}

	ctx.EntityType = resolveEntityType(s)
	ctx.AggregationLevel = resolveAggregationLevel(s)
	ctx.MetricType = resolveMetricType(s)
	ctx.IdentifiedColumns = s.identified
	ctx.HasTimeComponent = anyColumnContains(lowerColumns, timeKeywords...)
	ctx.HasGrouping = hasGrouping(rs.Rows, columns)

	signals := computeSignals(rs.Rows, s.identified)
	ctx.HasOutliers = signals.hasOutliers
	ctx.HasTrends = signals.hasTrends
	ctx.HasComparableGroups = signals.hasComparableGroups

	return ctx
}

// identifierPattern matches bare SQL identifiers in lower-cased SQL text.
var identifierPattern = regexp.MustCompile(`[a-z_][a-z0-9_]*`)

// sqlTableRoots returns the singularized identifiers of the SQL text so that
// "tasks" and "task" match the same root.
func sqlTableRoots(sqlQuery string) map[string]bool {
	roots := make(map[string]bool)
	if sqlQuery == "" {
		return roots
	}
	for _, ident := range identifierPattern.FindAllString(strings.ToLower(sqlQuery), -1) {
		roots[ident] = true
		roots[inflection.Singular(ident)] = true
	}
	return roots
}

