package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

// maxReportRows caps how many data rows are rendered into the PDF table.
const maxReportRows = 50

// ReportWriter renders analysis results into PDF files under a single
// output directory.
type ReportWriter struct {
	dir    string
	logger *zap.Logger
}

// NewReportWriter ensures the output directory exists.
func NewReportWriter(dir string, logger *zap.Logger) (*ReportWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &ReportWriter{dir: dir, logger: logger}, nil
}

// Generate renders the request into a timestamped PDF and returns its
// filename.
func (w *ReportWriter) Generate(req models.ReportRequest) (string, error) {
	filename := fmt.Sprintf("report_%s.pdf", time.Now().Format("20060102_150405"))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	title := req.Title
	if title == "" {
		title = "Data Analysis Report"
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(110, 110, 110)
	meta := fmt.Sprintf("Generated by %s on %s | Source: %s",
		orDefault(req.Metadata.GeneratedBy, "analyst-engine"),
		orDefault(req.Metadata.Timestamp, time.Now().Format(time.RFC3339)),
		orDefault(req.Metadata.DataSource, "unknown"))
	pdf.CellFormat(0, 6, meta, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetTextColor(0, 0, 0)

	if req.UserQuery != "" {
		w.section(pdf, "Question")
		pdf.SetFont("Arial", "I", 11)
		pdf.MultiCell(0, 6, req.UserQuery, "", "L", false)
		pdf.Ln(2)
	}

	if req.Insights != "" {
		w.section(pdf, "Insights")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 6, req.Insights, "", "L", false)
		pdf.Ln(2)
	}

	if len(req.Data) > 0 {
		w.section(pdf, "Data")
		w.table(pdf, req.Data)
	}

	if req.ChartConfig != nil && len(req.ChartConfig.Data) > 0 {
		w.section(pdf, orDefault(req.ChartConfig.Title, "Chart Data"))
		w.table(pdf, req.ChartConfig.Data)
	}

	path := filepath.Join(w.dir, filename)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	w.logger.Info("report generated", zap.String("filename", filename))
	return filename, nil
}

func (w *ReportWriter) section(pdf *gofpdf.Fpdf, heading string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, heading, "", 1, "L", false, 0, "")
}

// table renders rows as a bordered grid with a header derived from the
// sorted keys of the first row.
func (w *ReportWriter) table(pdf *gofpdf.Fpdf, rows []map[string]any) {
	if len(rows) > maxReportRows {
		rows = rows[:maxReportRows]
	}

	columns := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(columns))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(colWidth, 7, truncate(col, 30), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		for _, col := range columns {
			pdf.CellFormat(colWidth, 6, truncate(fmt.Sprintf("%v", row[col]), 30), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

// Path resolves a report filename inside the output directory, rejecting
// anything that could escape it.
func (w *ReportWriter) Path(filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return "", apperrors.NewValidationError("invalid report filename")
	}
	path := filepath.Join(w.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.ErrNotFound
	}
	return path, nil
}

// List returns the generated reports, newest first.
func (w *ReportWriter) List() ([]models.ReportInfo, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var reports []models.ReportInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, models.ReportInfo{
			Filename: entry.Name(),
			Size:     info.Size(),
			Created:  info.ModTime(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Modified.After(reports[j].Modified)
	})
	return reports, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
