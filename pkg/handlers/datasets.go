package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/ingest"
	"github.com/tessellate-ai/analyst-engine/pkg/services"
)

// DatasetHandler serves dataset ingestion and direct file querying.
type DatasetHandler struct {
	processor *ingest.Processor
	retrieval *services.RetrievalAgent
	logger    *zap.Logger
}

// NewDatasetHandler creates the dataset handler.
func NewDatasetHandler(processor *ingest.Processor, retrieval *services.RetrievalAgent, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{processor: processor, retrieval: retrieval, logger: logger}
}

// RegisterRoutes registers dataset routes on the given mux.
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/process", h.Process)
	mux.HandleFunc("POST /api/query", h.Query)
	mux.HandleFunc("GET /api/dataset/{id}/info", h.Info)
	mux.HandleFunc("DELETE /api/dataset/{id}", h.Delete)
}

type processRequest struct {
	UserID    string `json:"user_id"`
	FileURL   string `json:"file_url"`
	FileName  string `json:"file_name"`
	DatasetID string `json:"dataset_id"`
}

// Process ingests a file: download, chunk, embed, register.
func (h *DatasetHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if req.FileURL == "" {
		WriteServiceError(w, h.logger, apperrors.NewValidationError("file_url is required"))
		return
	}
	if req.FileName == "" {
		WriteServiceError(w, h.logger, apperrors.NewValidationError("file_name is required"))
		return
	}

	result, err := h.processor.Process(r.Context(), orAnonymous(req.UserID), req.FileURL, req.FileName, req.DatasetID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, result)
}

type datasetQueryRequest struct {
	UserID    string `json:"user_id"`
	DatasetID string `json:"dataset_id"`
	Question  string `json:"question"`
}

// Query answers a question from one ingested dataset.
func (h *DatasetHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req datasetQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if req.DatasetID == "" {
		WriteServiceError(w, h.logger, apperrors.NewValidationError("dataset_id is required"))
		return
	}
	if req.Question == "" {
		WriteServiceError(w, h.logger, apperrors.NewValidationError("question is required"))
		return
	}

	answer, err := h.retrieval.Query(r.Context(), req.DatasetID, req.Question)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, answer)
}

// Info returns catalog metadata and chunk count for a dataset.
func (h *DatasetHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.processor.Info(r.Context(), userIDOf(r), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, info)
}

// Delete removes a dataset's vectors and catalog entry.
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("id")
	if err := h.processor.Delete(r.Context(), userIDOf(r), datasetID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "deleted",
		"dataset_id": datasetID,
	})
}
