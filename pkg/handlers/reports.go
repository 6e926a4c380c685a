package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/models"
	"github.com/tessellate-ai/analyst-engine/pkg/services"
)

// ReportsHandler serves PDF report generation and delivery.
type ReportsHandler struct {
	writer *services.ReportWriter
	logger *zap.Logger
}

// NewReportsHandler creates the reports handler.
func NewReportsHandler(writer *services.ReportWriter, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{writer: writer, logger: logger}
}

// RegisterRoutes registers report routes on the given mux.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports/generate", h.Generate)
	mux.HandleFunc("GET /api/reports/download/{filename}", h.Download)
	mux.HandleFunc("GET /api/reports/list", h.List)
}

// Generate renders a report from caller-supplied content.
func (h *ReportsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	filename, err := h.writer.Generate(req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"filename": filename})
}

// Download streams a previously generated report.
func (h *ReportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := h.writer.Path(r.PathValue("filename"))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// List returns the generated reports, newest first.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.writer.List()
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if reports == nil {
		reports = []models.ReportInfo{}
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
