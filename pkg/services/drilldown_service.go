package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/audit"
	"github.com/cohortlens/insights-engine/pkg/drilldown"
	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/sql"
)

// DrillDownResponse is the analyzed context and the ranked follow-up suggestions.
type DrillDownResponse struct {
	RequestID   uuid.UUID               `json:"requestId"`
	Context     models.DrillDownContext `json:"context"`
	Suggestions []models.Suggestion     `json:"suggestions"`
}

// DrillDownService analyzes a displayed result and proposes follow-up questions.
type DrillDownService interface {
	Suggest(ctx context.Context, source string, input models.AnalysisInput) (*DrillDownResponse, error)
}

type drillDownService struct {
	auditor *audit.Auditor
	logger  *zap.Logger
}

// NewDrillDownService creates a DrillDownService.
func NewDrillDownService(auditor *audit.Auditor, logger *zap.Logger) DrillDownService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NewAuditor(logger)
	}
	return &drillDownService{
		auditor: auditor,
		logger:  logger.Named("drilldown-service"),
	}
}

var _ DrillDownService = (*drillDownService)(nil)

// Suggest never fails on content: malformed or empty input produces the
// default context and whatever suggestions it supports.
func (s *drillDownService) Suggest(ctx context.Context, source string, input models.AnalysisInput) (*DrillDownResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestID := uuid.New()
	s.screenInputs(requestID, source, input)

	dc, suggestions := drilldown.SuggestForInput(input)

	s.logger.Debug("Generated drill-down suggestions",
		zap.String("request_id", requestID.String()),
		zap.String("source", source),
		zap.String("entity_type", string(dc.EntityType)),
		zap.String("aggregation_level", string(dc.AggregationLevel)),
		zap.String("metric_type", string(dc.MetricType)),
		zap.Int("result_count", dc.ResultCount),
		zap.Int("suggestions", len(suggestions)),
	)

	return &DrillDownResponse{
		RequestID:   requestID,
		Context:     dc,
		Suggestions: suggestions,
	}, nil
}

// screenInputs flags free-text inputs that look like SQL injection. They are
// audited but never rejected: the analyzer only ever reads them as text.
func (s *drillDownService) screenInputs(requestID uuid.UUID, source string, input models.AnalysisInput) {
	params := map[string]any{"question": input.Question}
	for i, m := range input.Metrics {
		params[fmt.Sprintf("metrics[%d].name", i)] = m.Name
	}

	for _, check := range sql.CheckAllParameters(params) {
		s.auditor.LogInjectionAttempt(requestID, source, audit.InjectionDetails{
			Field:       check.ParamName,
			Value:       fmt.Sprint(check.ParamValue),
			Fingerprint: check.Fingerprint,
		})
	}
}
