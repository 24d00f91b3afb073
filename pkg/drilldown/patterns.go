package drilldown

import (
	"fmt"

	"github.com/jinzhu/inflection"

	"github.com/cohortlens/insights-engine/pkg/models"
)

// Row-count thresholds used by the pattern library.
const (
	// FilterMinRows is the row count above which filter suggestions run without outliers.
	FilterMinRows = 10
	// TopBottomMinRows is the minimum row count for a top-vs-bottom decile comparison.
	TopBottomMinRows = 10
	// GenericRankMinRows is the row count above which generic top/bottom 10 filters are offered.
	GenericRankMinRows = 20
)

// suggestionFactory builds the suggestions of one family for one entity type.
type suggestionFactory func(c *models.DrillDownContext) []models.Suggestion

type patternKey struct {
	family models.QueryType
	entity models.EntityType
}

// patternLibrary maps (family, entity) to its hand-authored suggestions. Each
// entry is independently tunable; a missing entry yields no suggestions.
var patternLibrary = map[patternKey]suggestionFactory{
	// Detail: aggregate -> individual records
	{models.QueryTypeDetail, models.EntityTypeTasks}: func(c *models.DrillDownContext) []models.Suggestion {
		if c.AggregationLevel == models.AggregationIndividual {
			return []models.Suggestion{{
				ID:                "detail-task-completers",
				Label:             "Show builders who completed these",
				Icon:              "👥",
				Query:             "Show the list of builders who completed these tasks, with their names and completion dates",
				QueryType:         models.QueryTypeDetail,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          10,
				Description:       "See exactly which builders finished this task",
			}}
		}
		return []models.Suggestion{{
			ID:                "detail-task-by-task",
			Label:             "View task-by-task completion",
			Icon:              "📋",
			Query:             "Show completion rates for each individual task, including task title, day, and number of builders who completed it",
			QueryType:         models.QueryTypeDetail,
			ExpectedChartType: models.ChartTypeTable,
			Priority:          9,
			Description:       "Break the aggregate down into each task",
		}}
	},
	{models.QueryTypeDetail, models.EntityTypeBuilders}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "detail-builder-profiles",
			Label:             "View complete builder profiles",
			Icon:              "👤",
			Query:             "Show complete profiles for these builders including attendance rate, task completion rate, and average quality score",
			QueryType:         models.QueryTypeDetail,
			ExpectedChartType: models.ChartTypeTable,
			Priority:          9,
			Description:       "All key metrics for each builder in one place",
		}}
	},
	{models.QueryTypeDetail, models.EntityTypeAttendance}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "detail-attendance-records",
			Label:             "View individual attendance records",
			Icon:              "📅",
			Query:             "Show individual attendance records with builder name, date, check-in time, and status",
			QueryType:         models.QueryTypeDetail,
			ExpectedChartType: models.ChartTypeTable,
			Priority:          9,
			Description:       "See who attended on each day",
		}}
	},
	{models.QueryTypeDetail, models.EntityTypeFeedback}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{
			{
				ID:                "detail-feedback-submitters",
				Label:             "Show builders who submitted",
				Icon:              "👥",
				Query:             "Show which builders submitted feedback, with their names, submission dates, and referral likelihood",
				QueryType:         models.QueryTypeDetail,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          10,
				Description:       "Who is behind these feedback numbers",
			},
			{
				ID:                "detail-feedback-comments",
				Label:             "View feedback comments",
				Icon:              "💬",
				Query:             "Show the written feedback comments including what we did well and what we could improve",
				QueryType:         models.QueryTypeDetail,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          8,
				Description:       "Read the open-ended responses",
			},
		}
	},
	{models.QueryTypeDetail, models.EntityTypeSubmissions}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "detail-submission-records",
			Label:             "View individual submissions",
			Icon:              "📝",
			Query:             "Show each task submission with builder name, task title, submission date, and assessment score",
			QueryType:         models.QueryTypeDetail,
			ExpectedChartType: models.ChartTypeTable,
			Priority:          9,
			Description:       "Inspect the submissions behind this result",
		}}
	},

	// Comparison: segment vs segment
	{models.QueryTypeComparison, models.EntityTypeAttendance}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "comparison-weekday-weekend",
			Label:             "Compare weekday vs weekend attendance",
			Icon:              "⚖️",
			Query:             "Compare average attendance rates on weekdays versus weekends",
			QueryType:         models.QueryTypeComparison,
			ExpectedChartType: models.ChartTypeBar,
			Priority:          7,
			Description:       "Spot differences in attendance patterns across the week",
		}}
	},
	{models.QueryTypeComparison, models.EntityTypeTasks}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "comparison-task-types",
			Label:             "Compare completion by task type",
			Icon:              "⚖️",
			Query:             "Compare completion rates across task types such as individual, group, and assessment tasks",
			QueryType:         models.QueryTypeComparison,
			ExpectedChartType: models.ChartTypeBar,
			Priority:          8,
			Description:       "See which kinds of tasks builders struggle with",
		}}
	},
	{models.QueryTypeComparison, models.EntityTypeBuilders}: func(c *models.DrillDownContext) []models.Suggestion {
		if c.ResultCount < TopBottomMinRows {
			return nil
		}
		return []models.Suggestion{{
			ID:                "comparison-top-bottom-decile",
			Label:             "Compare top 10% vs bottom 10%",
			Icon:              "🏆",
			Query:             "Compare the top 10% of builders with the bottom 10% on attendance, task completion, and quality scores",
			QueryType:         models.QueryTypeComparison,
			ExpectedChartType: models.ChartTypeBar,
			Priority:          8,
			Description:       "What separates the strongest builders from those struggling",
		}}
	},
	{models.QueryTypeComparison, models.EntityTypeFeedback}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "comparison-feedback-week-over-week",
			Label:             "Compare NPS week over week",
			Icon:              "📊",
			Query:             "Compare the net promoter score for each week of the program, week over week",
			QueryType:         models.QueryTypeComparison,
			ExpectedChartType: models.ChartTypeBar,
			Priority:          9,
			Description:       "Track how sentiment shifts between weeks",
		}}
	},

	// Correlation: cross-metric
	{models.QueryTypeCorrelation, models.EntityTypeTasks}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "correlation-task-engagement",
			Label:             "Engagement of completers vs non-completers",
			Icon:              "🔗",
			Query:             "Show builder engagement scores for builders who completed these tasks versus those who did not",
			QueryType:         models.QueryTypeCorrelation,
			ExpectedChartType: models.ChartTypeBar,
			Priority:          7,
			Description:       "Does task completion track overall engagement?",
		}}
	},
	{models.QueryTypeCorrelation, models.EntityTypeAttendance}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "correlation-attendance-completion",
			Label:             "Task completion for these builders/days",
			Icon:              "🔗",
			Query:             "Show task completion rates for these builders and days alongside their attendance",
			QueryType:         models.QueryTypeCorrelation,
			ExpectedChartType: models.ChartTypeScatter,
			Priority:          8,
			Description:       "See whether showing up translates into finished work",
		}}
	},
	{models.QueryTypeCorrelation, models.EntityTypeBuilders}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "correlation-builder-metrics",
			Label:             "All performance metrics in one table",
			Icon:              "📊",
			Query:             "Show all performance metrics for these builders in one table: attendance rate, task completion rate, average quality score, and feedback count",
			QueryType:         models.QueryTypeCorrelation,
			ExpectedChartType: models.ChartTypeTable,
			Priority:          9,
			Description:       "Compare every metric side by side",
		}}
	},
	{models.QueryTypeCorrelation, models.EntityTypeFeedback}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "correlation-feedback-attendance",
			Label:             "Feedback vs attendance",
			Icon:              "🔗",
			Query:             "Show referral likelihood for each builder alongside their attendance rate",
			QueryType:         models.QueryTypeCorrelation,
			ExpectedChartType: models.ChartTypeScatter,
			Priority:          7,
			Description:       "Are the most engaged builders also the happiest?",
		}}
	},
	{models.QueryTypeCorrelation, models.EntityTypeSubmissions}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "correlation-submission-attendance",
			Label:             "Submission quality vs attendance",
			Icon:              "🔗",
			Query:             "Show average submission scores for each builder alongside their attendance rate",
			QueryType:         models.QueryTypeCorrelation,
			ExpectedChartType: models.ChartTypeScatter,
			Priority:          7,
			Description:       "Does attendance predict work quality?",
		}}
	},

	// Temporal: add a time axis
	{models.QueryTypeTemporal, models.EntityTypeTasks}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "temporal-task-completion",
			Label:             "Show completion rates over time",
			Icon:              "📈",
			Query:             "Show task completion rates by day over the course of the program",
			QueryType:         models.QueryTypeTemporal,
			ExpectedChartType: models.ChartTypeLine,
			Priority:          8,
			Description:       "See how completion changes day to day",
		}}
	},
	{models.QueryTypeTemporal, models.EntityTypeBuilders}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "temporal-builder-progress",
			Label:             "Show progress over 2-3 weeks",
			Icon:              "📈",
			Query:             "Show weekly attendance and task completion for these builders over the last 3 weeks",
			QueryType:         models.QueryTypeTemporal,
			ExpectedChartType: models.ChartTypeLine,
			Priority:          7,
			Description:       "Is each builder trending up or down?",
		}}
	},
	{models.QueryTypeTemporal, models.EntityTypeAttendance}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "temporal-daily-attendance",
			Label:             "Show daily attendance trend",
			Icon:              "📈",
			Query:             "Show the daily attendance rate for every class day in the program",
			QueryType:         models.QueryTypeTemporal,
			ExpectedChartType: models.ChartTypeLine,
			Priority:          8,
			Description:       "Spot dips and recoveries in attendance",
		}}
	},
	{models.QueryTypeTemporal, models.EntityTypeFeedback}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "temporal-nps-trend",
			Label:             "Show NPS trend by week",
			Icon:              "📈",
			Query:             "Show the net promoter score for each week of the program",
			QueryType:         models.QueryTypeTemporal,
			ExpectedChartType: models.ChartTypeLine,
			Priority:          7,
			Description:       "Follow sentiment across the program",
		}}
	},
	{models.QueryTypeTemporal, models.EntityTypeSubmissions}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "temporal-submissions-daily",
			Label:             "Show submissions per day",
			Icon:              "📈",
			Query:             "Show the number of task submissions per class day",
			QueryType:         models.QueryTypeTemporal,
			ExpectedChartType: models.ChartTypeLine,
			Priority:          7,
			Description:       "See when builders turn in their work",
		}}
	},

	// Filter: isolate segments and outliers
	{models.QueryTypeFilter, models.EntityTypeBuilders}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{
			{
				ID:                "filter-at-risk-builders",
				Label:             "At-risk builders only",
				Icon:              "⚠️",
				Query:             "Show only at-risk builders: attendance below 70% OR task completion below 50%",
				QueryType:         models.QueryTypeFilter,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          10,
				Description:       "Focus on builders who need intervention",
			},
			{
				ID:                "filter-top-performers",
				Label:             "Top performers only",
				Icon:              "⭐",
				Query:             "Show only top performing builders with engagement above 85%",
				QueryType:         models.QueryTypeFilter,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          8,
				Description:       "Highlight the strongest builders",
			},
		}
	},
	{models.QueryTypeFilter, models.EntityTypeTasks}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{
			{
				ID:                "filter-outlier-tasks",
				Label:             "Outlier tasks only",
				Icon:              "🔍",
				Query:             "Show only tasks with completion above 80% or below 30%",
				QueryType:         models.QueryTypeFilter,
				ExpectedChartType: models.ChartTypeBar,
				Priority:          9,
				Description:       "Isolate the tasks that stand out",
			},
			{
				ID:                "filter-low-completion-tasks",
				Label:             "Low completion (<30%) only",
				Icon:              "⚠️",
				Query:             "Show only tasks with completion below 30%",
				QueryType:         models.QueryTypeFilter,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          8,
				Description:       "Find tasks that may need redesign",
			},
		}
	},
	{models.QueryTypeFilter, models.EntityTypeAttendance}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{
			{
				ID:                "filter-absent-builders",
				Label:             "Show absent builders",
				Icon:              "🚫",
				Query:             "Show only builders who were absent, with the dates they missed",
				QueryType:         models.QueryTypeFilter,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          9,
				Description:       "Who is missing class",
			},
			{
				ID:                "filter-late-arrivals",
				Label:             "Show late arrivals",
				Icon:              "⏰",
				Query:             "Show only builders who checked in late, with their check-in times",
				QueryType:         models.QueryTypeFilter,
				ExpectedChartType: models.ChartTypeTable,
				Priority:          7,
				Description:       "Who is arriving after class starts",
			},
		}
	},
	{models.QueryTypeFilter, models.EntityTypeFeedback}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "filter-detractors",
			Label:             "Detractors only",
			Icon:              "⚠️",
			Query:             "Show only feedback with referral likelihood of 6 or below, with the builder's comments",
			QueryType:         models.QueryTypeFilter,
			ExpectedChartType: models.ChartTypeTable,
			Priority:          8,
			Description:       "Understand what unhappy builders are saying",
		}}
	},
	{models.QueryTypeFilter, models.EntityTypeSubmissions}: func(_ *models.DrillDownContext) []models.Suggestion {
		return []models.Suggestion{{
			ID:                "filter-low-scoring-submissions",
			Label:             "Low-scoring submissions only",
			Icon:              "⚠️",
			Query:             "Show only task submissions with an assessment score below 60",
			QueryType:         models.QueryTypeFilter,
			ExpectedChartType: models.ChartTypeTable,
			Priority:          8,
			Description:       "Find work that needs review",
		}}
	},
}

// entityNouns are the singular nouns used in generic suggestion labels.
var entityNouns = map[models.EntityType]string{
	models.EntityTypeTasks:       "task",
	models.EntityTypeBuilders:    "builder",
	models.EntityTypeAttendance:  "attendance record",
	models.EntityTypeFeedback:    "feedback response",
	models.EntityTypeSubmissions: "submission",
	models.EntityTypeMixed:       "row",
}

func lookupPatterns(family models.QueryType, c *models.DrillDownContext) []models.Suggestion {
	factory, ok := patternLibrary[patternKey{family: family, entity: c.EntityType}]
	if !ok {
		return nil
	}
	return factory(c)
}

// DetailSuggestions proposes drilling from an aggregate into individual records.
func DetailSuggestions(c *models.DrillDownContext) []models.Suggestion {
	return lookupPatterns(models.QueryTypeDetail, c)
}

// ComparisonSuggestions proposes segment-vs-segment comparisons for small enough results.
func ComparisonSuggestions(c *models.DrillDownContext) []models.Suggestion {
	if !runsComparison(c) {
		return nil
	}
	return lookupPatterns(models.QueryTypeComparison, c)
}

// CorrelationSuggestions proposes cross-metric views. It ignores the context's flags.
func CorrelationSuggestions(c *models.DrillDownContext) []models.Suggestion {
	return lookupPatterns(models.QueryTypeCorrelation, c)
}

// TemporalSuggestions proposes adding a time axis to results that lack one.
func TemporalSuggestions(c *models.DrillDownContext) []models.Suggestion {
	if !runsTemporal(c) {
		return nil
	}
	return lookupPatterns(models.QueryTypeTemporal, c)
}

// FilterSuggestions proposes isolating segments or outliers. Results with more
// than GenericRankMinRows rows also get generic top/bottom 10 filters.
func FilterSuggestions(c *models.DrillDownContext) []models.Suggestion {
	if !runsFilter(c) {
		return nil
	}
	suggestions := lookupPatterns(models.QueryTypeFilter, c)
	if c.ResultCount > GenericRankMinRows {
		suggestions = append(suggestions, rankFilters(c.EntityType)...)
	}
	return suggestions
}

func rankFilters(entity models.EntityType) []models.Suggestion {
	noun, ok := entityNouns[entity]
	if !ok {
		noun = entityNouns[models.EntityTypeMixed]
	}
	plural := inflection.Plural(noun)

	return []models.Suggestion{
		{
			ID:                "filter-top-10",
			Label:             fmt.Sprintf("Top 10 %s only", plural),
			Icon:              "🔝",
			Query:             fmt.Sprintf("Show only the top 10 %s from this result", plural),
			QueryType:         models.QueryTypeFilter,
			ExpectedChartType: models.ChartTypeBar,
			Priority:          6,
			Description:       "Narrow the list to the highest values",
		},
		{
			ID:                "filter-bottom-10",
			Label:             fmt.Sprintf("Bottom 10 %s only", plural),
			Icon:              "🔻",
			Query:             fmt.Sprintf("Show only the bottom 10 %s from this result", plural),
			QueryType:         models.QueryTypeFilter,
			ExpectedChartType: models.ChartTypeBar,
			Priority:          6,
			Description:       "Narrow the list to the lowest values",
		},
	}
}
