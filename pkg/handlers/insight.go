package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/apperrors"
	"github.com/propfolio/insight-engine/pkg/services"
)

// callerHeader carries the authenticated caller identity, set by the gateway.
const callerHeader = "X-User-ID"

// InsightHandler serves the question-answering endpoints.
type InsightHandler struct {
	insights *services.InsightService
	canned   *services.CannedLibrary
	logger   *zap.Logger
}

// NewInsightHandler creates the insight handler.
func NewInsightHandler(insights *services.InsightService, canned *services.CannedLibrary, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, canned: canned, logger: logger}
}

// RegisterRoutes registers the insight routes on the given mux.
func (h *InsightHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /insights/ask", h.Ask)
	mux.HandleFunc("POST /insights/chat", h.Chat)
	mux.HandleFunc("GET /insights/canned", h.ListCanned)
	mux.HandleFunc("POST /insights/canned/{id}", h.RunCanned)
}

type askRequest struct {
	Question string `json:"question"`
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

// Ask handles POST /insights/ask: a one-shot question with no session.
func (h *InsightHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	resp, err := h.insights.Ask(r.Context(), userID, req.Question)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// Chat handles POST /insights/chat: a question within a conversation session.
// An absent or expired session_id starts a fresh session.
func (h *InsightHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "session_id must be a UUID")
			return
		}
		sessionID = parsed
	}

	resp, err := h.insights.Chat(r.Context(), sessionID, userID, req.Question)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// ListCanned handles GET /insights/canned: the catalog of fixed queries.
func (h *InsightHandler) ListCanned(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		ID          services.CannedQueryID `json:"id"`
		Description string                 `json:"description"`
	}

	catalog := h.canned.Catalog()
	entries := make([]entry, 0, len(catalog))
	for _, q := range catalog {
		entries = append(entries, entry{ID: q.ID, Description: q.Description})
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"queries": entries})
}

// RunCanned handles POST /insights/canned/{id}.
func (h *InsightHandler) RunCanned(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	id := services.CannedQueryID(r.PathValue("id"))
	resp, err := h.insights.Canned(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

func (h *InsightHandler) caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(callerHeader)
	if raw == "" {
		_ = ErrorResponse(w, http.StatusUnauthorized, "missing_caller", "caller identity header is required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "invalid_caller", "caller identity must be a UUID")
		return uuid.Nil, false
	}
	return userID, true
}

// writeError maps pipeline errors onto HTTP statuses. Internal detail stays
// in the logs; the response carries only the category.
func (h *InsightHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, apperrors.ErrValidationRejected):
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "query_rejected",
			"the generated query did not pass validation; try rephrasing the question")
	case errors.Is(err, apperrors.ErrGeneratorTimeout), errors.Is(err, apperrors.ErrExecutionTimeout):
		_ = ErrorResponse(w, http.StatusGatewayTimeout, "timeout", "the question took too long to answer")
	case errors.Is(err, apperrors.ErrGeneratorFailure):
		_ = ErrorResponse(w, http.StatusBadGateway, "generator_failure", "the query generator is unavailable")
	default:
		h.logger.Error("insight request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
