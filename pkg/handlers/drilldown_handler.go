package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/services"
)

// DrillDownHandler serves drill-down suggestions for an executed query result.
type DrillDownHandler struct {
	service services.DrillDownService
	logger  *zap.Logger
}

// NewDrillDownHandler creates a DrillDownHandler.
func NewDrillDownHandler(service services.DrillDownService, logger *zap.Logger) *DrillDownHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DrillDownHandler{service: service, logger: logger.Named("drilldown-handler")}
}

// RegisterRoutes registers the drill-down routes on the given mux.
func (h *DrillDownHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/drilldown/suggestions", h.Suggest)
}

// Suggest handles POST /api/drilldown/suggestions.
func (h *DrillDownHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req models.DrillDownRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	resp, err := h.service.Suggest(r.Context(), models.SourceHTTP, req.AnalysisInput())
	if err != nil {
		h.logger.Error("Failed to generate drill-down suggestions", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to generate suggestions"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: resp}); err != nil {
		h.logger.Error("Failed to encode drill-down response", zap.Error(err))
	}
}
