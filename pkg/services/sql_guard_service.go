package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/apperrors"
	"github.com/cohortlens/insights-engine/pkg/audit"
	"github.com/cohortlens/insights-engine/pkg/logging"
	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/repositories"
	"github.com/cohortlens/insights-engine/pkg/sql"
	"github.com/cohortlens/insights-engine/pkg/workerpool"
)

// SQLCheckResponse is the outcome of a single check.
type SQLCheckResponse struct {
	RequestID uuid.UUID `json:"requestId"`
	models.SQLFixResult
}

// SQLBatchCheckResponse is the outcome of a batch check, in submission order.
type SQLBatchCheckResponse struct {
	RequestID uuid.UUID                  `json:"requestId"`
	Results   []models.BatchSQLFixResult `json:"results"`
}

// SQLGuardService replaces hardcoded denominators in generated SQL before it runs.
type SQLGuardService interface {
	Check(ctx context.Context, source, sqlQuery string) (*SQLCheckResponse, error)
	CheckBatch(ctx context.Context, source string, queries []models.BatchSQLQuery) (*SQLBatchCheckResponse, error)
}

type sqlGuardService struct {
	validator *sql.DenominatorValidator
	pool      *workerpool.Pool
	auditor   *audit.Auditor
	repo      repositories.SQLFixAuditRepository // nil when no audit store is configured
	logger    *zap.Logger
}

// NewSQLGuardService creates a SQLGuardService. repo may be nil.
func NewSQLGuardService(
	validator *sql.DenominatorValidator,
	pool *workerpool.Pool,
	auditor *audit.Auditor,
	repo repositories.SQLFixAuditRepository,
	logger *zap.Logger,
) SQLGuardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = sql.NewDenominatorValidator(sql.DefaultDenominatorOptions())
	}
	if pool == nil {
		pool = workerpool.New(workerpool.DefaultConfig(), logger)
	}
	if auditor == nil {
		auditor = audit.NewAuditor(logger)
	}
	if err := validator.OptionsError(); err != nil {
		auditor.LogUnsafeConfiguration("denominators", err)
	}

	return &sqlGuardService{
		validator: validator,
		pool:      pool,
		auditor:   auditor,
		repo:      repo,
		logger:    logger.Named("sql-guard-service"),
	}
}

var _ SQLGuardService = (*sqlGuardService)(nil)

func (s *sqlGuardService) Check(ctx context.Context, source, sqlQuery string) (*SQLCheckResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestID := uuid.New()
	result := s.validator.Fix(sqlQuery)
	if result.HadIssues {
		s.record(ctx, requestID, source, "", sqlQuery, result)
	}

	s.logger.Debug("Checked SQL for hardcoded denominators",
		zap.String("request_id", requestID.String()),
		zap.String("source", source),
		zap.Bool("had_issues", result.HadIssues),
		zap.String("sql", logging.SanitizeQuery(sqlQuery)),
	)

	return &SQLCheckResponse{RequestID: requestID, SQLFixResult: result}, nil
}

// CheckBatch checks every entry independently on the worker pool. An entry
// that fails is returned unchanged with hadIssues=false; the batch as a whole
// only fails when it is empty or the context is cancelled.
func (s *sqlGuardService) CheckBatch(ctx context.Context, source string, queries []models.BatchSQLQuery) (*SQLBatchCheckResponse, error) {
	if len(queries) == 0 {
		return nil, apperrors.ErrEmptyBatch
	}

	requestID := uuid.New()
	items := make([]workerpool.WorkItem[models.SQLFixResult], len(queries))
	for i, q := range queries {
		items[i] = workerpool.WorkItem[models.SQLFixResult]{
			ID: q.ID,
			Execute: func(context.Context) (models.SQLFixResult, error) {
				return s.validator.Fix(q.SQL), nil
			},
		}
	}

	workResults := workerpool.Process(ctx, s.pool, items, nil)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch check cancelled: %w", err)
	}

	results := make([]models.BatchSQLFixResult, len(queries))
	rewritten := 0
	for i, q := range queries {
		wr := workResults[i]
		result := wr.Result
		if wr.Err != nil {
			s.logger.Warn("Batch entry failed, returning it unchanged",
				zap.String("request_id", requestID.String()),
				zap.String("query_key", q.ID),
				zap.Error(wr.Err))
			result = models.SQLFixResult{SQL: q.SQL, HadIssues: false, Fixes: []string{}}
		}
		if result.HadIssues {
			rewritten++
			s.record(ctx, requestID, source, q.ID, q.SQL, result)
		}
		results[i] = models.BatchSQLFixResult{ID: q.ID, SQLFixResult: result}
	}

	s.logger.Info("Checked SQL batch for hardcoded denominators",
		zap.String("request_id", requestID.String()),
		zap.String("source", source),
		zap.Int("queries", len(queries)),
		zap.Int("rewritten", rewritten),
	)

	return &SQLBatchCheckResponse{RequestID: requestID, Results: results}, nil
}

// record writes the audit event and, when an audit store is configured, the
// persisted record. Persistence failures are logged and never surface.
func (s *sqlGuardService) record(ctx context.Context, requestID uuid.UUID, source, queryKey, original string, result models.SQLFixResult) {
	s.auditor.LogDenominatorRewrite(requestID, source, audit.RewriteDetails{
		QueryKey:     queryKey,
		OriginalSQL:  original,
		RewrittenSQL: result.SQL,
		Fixes:        result.Fixes,
	})

	if s.repo == nil {
		return
	}
	err := s.repo.Create(ctx, &models.SQLFixAuditRecord{
		RequestID:    requestID,
		QueryKey:     queryKey,
		Source:       source,
		OriginalSQL:  original,
		RewrittenSQL: result.SQL,
		Fixes:        result.Fixes,
	})
	if err != nil {
		s.logger.Warn("Failed to persist SQL fix audit record",
			zap.String("request_id", requestID.String()),
			zap.String("query_key", queryKey),
			zap.String("error", logging.SanitizeError(err)))
	}
}
