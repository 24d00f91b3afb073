package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/apperrors"
	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/services"
)

// SQLGuardHandler checks generated SQL for hardcoded denominators.
type SQLGuardHandler struct {
	service services.SQLGuardService
	logger  *zap.Logger
}

// NewSQLGuardHandler creates a SQLGuardHandler.
func NewSQLGuardHandler(service services.SQLGuardService, logger *zap.Logger) *SQLGuardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLGuardHandler{service: service, logger: logger.Named("sql-guard-handler")}
}

// RegisterRoutes registers the denominator check routes on the given mux.
func (h *SQLGuardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sql/denominators/check", h.Check)
}

// Check handles POST /api/sql/denominators/check. The body carries either
// "sql" for a single query or "queries" for a batch.
func (h *SQLGuardHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req models.SQLCheckRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	var (
		data any
		err  error
	)
	if req.IsBatch() {
		data, err = h.service.CheckBatch(r.Context(), models.SourceHTTP, req.Queries)
	} else {
		data, err = h.service.Check(r.Context(), models.SourceHTTP, *req.SQL)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to encode denominator check response", zap.Error(err))
	}
}

func (h *SQLGuardHandler) writeError(w http.ResponseWriter, err error) {
	status, code, message := http.StatusInternalServerError, "internal_error", "Failed to check SQL"
	switch {
	case errors.Is(err, apperrors.ErrEmptyBatch):
		status, code, message = http.StatusBadRequest, "empty_batch", err.Error()
	case errors.Is(err, apperrors.ErrInvalidRequest):
		status, code, message = http.StatusBadRequest, "invalid_request", err.Error()
	default:
		h.logger.Error("Denominator check failed", zap.Error(err))
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
