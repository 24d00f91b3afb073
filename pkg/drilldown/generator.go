package drilldown

import (
	"slices"

	"github.com/cohortlens/insights-engine/pkg/models"
)

// MaxSuggestions is the number of suggestions returned after ranking.
const MaxSuggestions = 3

// family pairs a pattern generator with the condition under which the orchestrator runs it.
type family struct {
	queryType models.QueryType
	runs      func(c *models.DrillDownContext) bool
	generate  func(c *models.DrillDownContext) []models.Suggestion
}

// families is evaluated in order; ties in priority keep this order.
var families = []family{
	{models.QueryTypeDetail, runsDetail, DetailSuggestions},
	{models.QueryTypeComparison, runsComparison, ComparisonSuggestions},
	{models.QueryTypeCorrelation, func(*models.DrillDownContext) bool { return true }, CorrelationSuggestions},
	{models.QueryTypeTemporal, runsTemporal, TemporalSuggestions},
	{models.QueryTypeFilter, runsFilter, FilterSuggestions},
}

func runsDetail(c *models.DrillDownContext) bool {
	return c.AggregationLevel != models.AggregationIndividual || c.ResultCount == 1
}

func runsComparison(c *models.DrillDownContext) bool {
	return c.ResultCount >= ComparableMinRows && c.ResultCount <= ComparableMaxRows
}

func runsTemporal(c *models.DrillDownContext) bool {
	return !c.HasTimeComponent && c.EntityType != models.EntityTypeMixed
}

func runsFilter(c *models.DrillDownContext) bool {
	return c.HasOutliers || c.ResultCount > FilterMinRows
}

// GenerateSuggestions runs every eligible pattern family, ranks the merged
// suggestions by priority (highest first, ties in insertion order) and returns
// at most MaxSuggestions. It returns an empty slice when nothing applies.
func GenerateSuggestions(c models.DrillDownContext) []models.Suggestion {
	var all []models.Suggestion
	for _, f := range families {
		if !f.runs(&c) {
			continue
		}
		all = append(all, f.generate(&c)...)
	}

	slices.SortStableFunc(all, func(a, b models.Suggestion) int {
		return b.Priority - a.Priority
	})

	if len(all) > MaxSuggestions {
		all = all[:MaxSuggestions]
	}
	if all == nil {
		return []models.Suggestion{}
	}
	return all
}

// EligibleFamilies returns the pattern families the orchestrator would run for c.
func EligibleFamilies(c models.DrillDownContext) []models.QueryType {
	var eligible []models.QueryType
	for _, f := range families {
		if f.runs(&c) {
			eligible = append(eligible, f.queryType)
		}
	}
	return eligible
}

// SuggestForInput analyzes a response and returns its context and ranked suggestions.
func SuggestForInput(input models.AnalysisInput) (models.DrillDownContext, []models.Suggestion) {
	c := AnalyzeContext(input)
	return c, GenerateSuggestions(c)
}
