package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/services"
)

// StatsHandler serves the dashboard statistics endpoint.
type StatsHandler struct {
	stats  *services.StatsService
	logger *zap.Logger
}

// NewStatsHandler creates the stats handler.
func NewStatsHandler(stats *services.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// RegisterRoutes registers the stats routes on the given mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /stats/dashboard", h.Dashboard)
}

// Dashboard handles GET /stats/dashboard.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get(callerHeader)
	if raw == "" {
		_ = ErrorResponse(w, http.StatusUnauthorized, "missing_caller", "caller identity header is required")
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "invalid_caller", "caller identity must be a UUID")
		return
	}

	dashboard, err := h.stats.Dashboard(r.Context(), userID)
	if err != nil {
		h.logger.Error("dashboard request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to load dashboard")
		return
	}
	_ = WriteJSON(w, http.StatusOK, dashboard)
}
