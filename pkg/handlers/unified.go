package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/catalog"
	"github.com/tessellate-ai/analyst-engine/pkg/services"
)

// UnifiedHandler serves cross-source querying.
type UnifiedHandler struct {
	orchestrator *services.Orchestrator
	catalog      *catalog.Catalog
	logger       *zap.Logger
}

// NewUnifiedHandler creates the unified query handler.
func NewUnifiedHandler(orchestrator *services.Orchestrator, cat *catalog.Catalog, logger *zap.Logger) *UnifiedHandler {
	return &UnifiedHandler{orchestrator: orchestrator, catalog: cat, logger: logger}
}

// RegisterRoutes registers unified routes on the given mux.
func (h *UnifiedHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/unified/query", h.Query)
	mux.HandleFunc("GET /api/unified/sources", h.Sources)
}

type unifiedQueryRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

// Query routes a question across every relevant source and returns the
// merged answer.
func (h *UnifiedHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req unifiedQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if req.Question == "" {
		WriteServiceError(w, h.logger, apperrors.NewValidationError("question is required"))
		return
	}

	resp, err := h.orchestrator.UnifiedQuery(r.Context(), orAnonymous(req.UserID), req.Question)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// Sources lists everything the user can query: files and databases.
func (h *UnifiedHandler) Sources(w http.ResponseWriter, r *http.Request) {
	uc := h.catalog.GetUserContext(r.Context(), userIDOf(r))
	_ = WriteJSON(w, http.StatusOK, uc)
}
