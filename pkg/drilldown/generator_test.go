package drilldown

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cohortlens/insights-engine/pkg/models"
)

func TestGenerateSuggestions_Ranking(t *testing.T) {
	tests := []struct {
		name string
		ctx  models.DrillDownContext
		want []string
	}{
		{
			name: "large builder list",
			ctx: models.DrillDownContext{
				EntityType:       models.EntityTypeBuilders,
				AggregationLevel: models.AggregationIndividual,
				ResultCount:      25,
			},
			want: []string{"filter-at-risk-builders", "correlation-builder-metrics", "comparison-top-bottom-decile"},
		},
		{
			name: "single overall task metric",
			ctx: models.DrillDownContext{
				EntityType:       models.EntityTypeTasks,
				AggregationLevel: models.AggregationOverall,
				ResultCount:      1,
			},
			want: []string{"detail-task-by-task", "temporal-task-completion", "correlation-task-engagement"},
		},
		{
			name: "equal priorities keep family order",
			ctx: models.DrillDownContext{
				EntityType:       models.EntityTypeFeedback,
				AggregationLevel: models.AggregationOverall,
				ResultCount:      1,
			},
			want: []string{"detail-feedback-submitters", "detail-feedback-comments", "correlation-feedback-attendance"},
		},
		{
			name: "daily feedback",
			ctx: models.DrillDownContext{
				EntityType:       models.EntityTypeFeedback,
				AggregationLevel: models.AggregationDaily,
				ResultCount:      5,
				HasTimeComponent: true,
			},
			want: []string{"detail-feedback-submitters", "comparison-feedback-week-over-week", "detail-feedback-comments"},
		},
		{
			name: "mixed result with many rows only gets rank filters",
			ctx: models.DrillDownContext{
				EntityType:       models.EntityTypeMixed,
				AggregationLevel: models.AggregationIndividual,
				ResultCount:      40,
			},
			want: []string{"filter-top-10", "filter-bottom-10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := suggestionIDs(GenerateSuggestions(tt.ctx))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("GenerateSuggestions() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateSuggestions_EmptyWhenNothingApplies(t *testing.T) {
	contexts := []models.DrillDownContext{
		{},
		{EntityType: models.EntityTypeMixed, AggregationLevel: models.AggregationIndividual, ResultCount: 5},
		AnalyzeContext(models.AnalysisInput{}),
	}
	for _, c := range contexts {
		got := GenerateSuggestions(c)
		require.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestGenerateSuggestions_BoundedAndOrdered(t *testing.T) {
	entities := append(append([]models.EntityType{}, models.ValidEntityTypes...), models.EntityType("unknown"))
	levels := []models.AggregationLevel{
		models.AggregationIndividual, models.AggregationDaily, models.AggregationWeekly,
		models.AggregationMonthly, models.AggregationOverall,
	}
	counts := []int{0, 1, 2, 5, 10, 11, 20, 21, 50, 51, 500}

	for _, entity := range entities {
		for _, level := range levels {
			for _, count := range counts {
				for _, flags := range []int{0, 1, 2, 3} {
					c := models.DrillDownContext{
						EntityType:       entity,
						AggregationLevel: level,
						ResultCount:      count,
						HasTimeComponent: flags&1 != 0,
						HasOutliers:      flags&2 != 0,
					}
					name := fmt.Sprintf("%s/%s/%d/%d", entity, level, count, flags)

					got := GenerateSuggestions(c)
					require.LessOrEqual(t, len(got), MaxSuggestions, name)
					for i := 1; i < len(got); i++ {
						require.GreaterOrEqual(t, got[i-1].Priority, got[i].Priority, name)
					}
				}
			}
		}
	}
}

func TestEligibleFamilies(t *testing.T) {
	tests := []struct {
		name string
		ctx  models.DrillDownContext
		want []models.QueryType
	}{
		{
			name: "empty context runs correlation only",
			ctx:  models.DrillDownContext{EntityType: models.EntityTypeMixed, AggregationLevel: models.AggregationIndividual},
			want: []models.QueryType{models.QueryTypeCorrelation},
		},
		{
			name: "single row runs detail",
			ctx:  models.DrillDownContext{EntityType: models.EntityTypeTasks, AggregationLevel: models.AggregationIndividual, ResultCount: 1},
			want: []models.QueryType{models.QueryTypeDetail, models.QueryTypeCorrelation, models.QueryTypeTemporal},
		},
		{
			name: "dated weekly rows",
			ctx: models.DrillDownContext{
				EntityType:       models.EntityTypeAttendance,
				AggregationLevel: models.AggregationWeekly,
				ResultCount:      12,
				HasTimeComponent: true,
			},
			want: []models.QueryType{models.QueryTypeDetail, models.QueryTypeComparison, models.QueryTypeCorrelation, models.QueryTypeFilter},
		},
		{
			name: "outliers run filter on small results",
			ctx: models.DrillDownContext{
				EntityType:       models.EntityTypeBuilders,
				AggregationLevel: models.AggregationIndividual,
				ResultCount:      6,
				HasOutliers:      true,
			},
			want: []models.QueryType{models.QueryTypeComparison, models.QueryTypeCorrelation, models.QueryTypeTemporal, models.QueryTypeFilter},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EligibleFamilies(tt.ctx))
		})
	}
}

func TestSuggestForInput_TaskCompletion(t *testing.T) {
	c, suggestions := SuggestForInput(models.AnalysisInput{
		Question: "show me task completion",
		Result: models.ResultSet{Rows: []models.Row{
			{"task_id": 1, "task_title": "Intro", "completion_pct": 95},
			{"task_id": 2, "task_title": "Lab", "completion_pct": 40},
		}},
	})

	assert.Equal(t, models.EntityTypeTasks, c.EntityType)
	assert.Equal(t, []string{"comparison-task-types", "temporal-task-completion", "correlation-task-engagement"}, suggestionIDs(suggestions))
}

func TestGenerateSuggestions_ConcurrentCalls(t *testing.T) {
	defer goleak.VerifyNone(t)

	input := models.AnalysisInput{
		Question: "which builders are struggling",
		Result:   models.ResultSet{Rows: rowsFor("attendance_rate", 90, 91, 89, 92, 88, 90, 12, 93, 91, 90, 89, 94)},
	}
	_, want := SuggestForInput(input)

	var wg sync.WaitGroup
	results := make([][]models.Suggestion, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = SuggestForInput(input)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
