package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/catalog"
	"github.com/tessellate-ai/analyst-engine/pkg/llm"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
	"github.com/tessellate-ai/analyst-engine/pkg/prompts"
)

// Source labels used in merged answers and report metadata.
const (
	labelCSV = "CSV"
	labelSQL = "SQL Database"
)

// reportKeywords trigger report generation regardless of what the routing
// model decided.
var reportKeywords = []string{"report", "pdf", "document", "export", "download"}

// documentAgent answers a question from one embedded dataset.
type documentAgent interface {
	Query(ctx context.Context, datasetID, question string) (*DocumentAnswer, error)
}

// databaseAgent answers a question from one live connection.
type databaseAgent interface {
	Query(ctx context.Context, userID, connectionID, question string) (*DatabaseAnswer, error)
}

// UnifiedResponse is the orchestrator's combined answer.
type UnifiedResponse struct {
	Answer            string              `json:"answer"`
	Data              []map[string]any    `json:"data,omitempty"`
	SourcesUsed       []string            `json:"sourcesUsed"`
	RowCount          int                 `json:"rowCount"`
	Chart             *models.ChartConfig `json:"chart,omitempty"`
	GeneratedSQL      map[string]string   `json:"generatedSql,omitempty"`
	ReportGenerated   bool                `json:"reportGenerated"`
	ReportFilename    string              `json:"reportFilename,omitempty"`
	ReportDownloadURL string              `json:"reportDownloadUrl,omitempty"`
}

// Orchestrator routes questions to the right agents and merges their
// answers.
type Orchestrator struct {
	completer llm.Completer
	catalog   *catalog.Catalog
	documents documentAgent
	databases databaseAgent
	reports   *ReportWriter
	logger    *zap.Logger
}

// NewOrchestrator wires the orchestrator. reports may be nil to disable
// report generation entirely.
func NewOrchestrator(completer llm.Completer, cat *catalog.Catalog, documents documentAgent, databases databaseAgent, reports *ReportWriter, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		completer: completer,
		catalog:   cat,
		documents: documents,
		databases: databases,
		reports:   reports,
		logger:    logger,
	}
}

// DetectSources decides which of the user's sources a question needs. The
// model's answer is validated against the actual catalog; a model failure
// falls back to a deterministic choice, files first, so routing itself
// never fails once the user has any source at all.
func (o *Orchestrator) DetectSources(ctx context.Context, userID, question string) (models.RoutingDecision, models.UserContext, error) {
	uc := o.catalog.GetUserContext(ctx, userID)
	if uc.Empty() {
		return models.RoutingDecision{}, uc, apperrors.ErrNoDataSources
	}

	raw, err := o.completer.Complete(ctx, prompts.BuildRoutingPrompt(question, uc), prompts.RoutingSystemMessage, 0.0)
	if err != nil {
		o.logger.Warn("source classification failed, using fallback routing", zap.Error(err))
		return o.fallbackDecision(uc), uc, nil
	}

	decision, err := llm.ParseJSONResponse[models.RoutingDecision](raw)
	if err != nil {
		o.logger.Warn("source classification returned unparseable JSON, using fallback routing", zap.Error(err))
		return o.fallbackDecision(uc), uc, nil
	}

	named := decision.Sources
	sanitizeDecision(&decision, uc)
	for _, s := range named {
		if !decision.Needs(s) {
			o.logger.Warn("classifier named a source kind with no matching targets, skipping it",
				zap.String("kind", string(s)))
		}
	}
	if len(decision.Sources) == 0 {
		return o.fallbackDecision(uc), uc, nil
	}

	if wantsReport(question) {
		decision.GenerateReport = true
	}
	return decision, uc, nil
}

// fallbackDecision targets the user's first file, or failing that their
// first database. One target keeps a model outage from fanning a single
// question across every registered source. It never asks for a report.
func (o *Orchestrator) fallbackDecision(uc models.UserContext) models.RoutingDecision {
	if len(uc.CSVFiles) > 0 {
		return models.RoutingDecision{
			Sources:    []models.SourceKind{models.SourceKindCSV},
			CSVTargets: []string{uc.CSVFiles[0].ID},
		}
	}
	return models.RoutingDecision{
		Sources:    []models.SourceKind{models.SourceKindSQL},
		SQLTargets: []string{uc.SQLDatabases[0].ID},
	}
}

// sanitizeDecision drops hallucinated targets and kinds the user does not
// have. A kind named with an explicitly empty target list widens to every
// entry of that kind; a kind whose named targets all failed to resolve is
// dropped and contributes nothing.
func sanitizeDecision(d *models.RoutingDecision, uc models.UserContext) {
	csvNamed := len(d.CSVTargets) > 0
	sqlNamed := len(d.SQLTargets) > 0
	d.CSVTargets = resolveTargets(d.CSVTargets, uc.CSVFiles)
	d.SQLTargets = resolveTargets(d.SQLTargets, uc.SQLDatabases)

	var kinds []models.SourceKind
	for _, s := range d.Sources {
		switch s {
		case models.SourceKindCSV:
			if len(uc.CSVFiles) == 0 {
				continue
			}
			if !csvNamed {
				d.CSVTargets = entryIDs(uc.CSVFiles)
			}
			if len(d.CSVTargets) > 0 {
				kinds = append(kinds, s)
			}
		case models.SourceKindSQL:
			if len(uc.SQLDatabases) == 0 {
				continue
			}
			if !sqlNamed {
				d.SQLTargets = entryIDs(uc.SQLDatabases)
			}
			if len(d.SQLTargets) > 0 {
				kinds = append(kinds, s)
			}
		}
	}
	d.Sources = kinds
}

// MergeResults combines per-source answers. Sources appear in CSV-then-SQL
// order, each under its label. Structured rows come from the SQL side only
// and are never deduplicated; the CSV side contributes prose and an
// optional chart, not rows.
func MergeResults(csvAns *DocumentAnswer, sqlAns *DatabaseAnswer) models.MergedResult {
	var merged models.MergedResult

	if csvAns != nil {
		merged.SourcesUsed = append(merged.SourcesUsed, labelCSV)
	}
	if sqlAns != nil {
		merged.SourcesUsed = append(merged.SourcesUsed, labelSQL)
		if sqlAns.Result != nil {
			merged.Data = append(merged.Data, sqlAns.Result.Rows...)
		}
	}
	merged.RowCount = len(merged.Data)

	switch {
	case csvAns != nil && sqlAns != nil:
		merged.Analysis = fmt.Sprintf("From %s:\n%s\n\nFrom %s:\n%s",
			labelCSV, csvAns.Answer, labelSQL, sqlAns.Analysis)
	case csvAns != nil:
		merged.Analysis = csvAns.Answer
	case sqlAns != nil:
		merged.Analysis = sqlAns.Analysis
	default:
		merged.Analysis = "No results found."
	}
	return merged
}

// UnifiedQuery answers a question across every source the router selected,
// fanning out to the agents in parallel and merging whatever succeeded.
func (o *Orchestrator) UnifiedQuery(ctx context.Context, userID, question string) (*UnifiedResponse, error) {
	decision, uc, err := o.DetectSources(ctx, userID, question)
	if err != nil {
		return nil, err
	}

	var (
		wg           sync.WaitGroup
		csvAns       *DocumentAnswer
		csvErr       error
		sqlAns       *DatabaseAnswer
		sqlErr       error
		generatedSQL map[string]string
	)

	if decision.Needs(models.SourceKindCSV) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			csvAns, csvErr = o.queryDatasets(ctx, decision.CSVTargets, uc, question)
		}()
	}
	if decision.Needs(models.SourceKindSQL) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqlAns, generatedSQL, sqlErr = o.queryDatabases(ctx, userID, decision.SQLTargets, question)
		}()
	}
	wg.Wait()

	if csvErr != nil {
		o.logger.Warn("file branch failed", zap.Error(csvErr))
	}
	if sqlErr != nil {
		o.logger.Warn("database branch failed", zap.Error(sqlErr))
	}
	if csvAns == nil && sqlAns == nil {
		return nil, errors.Join(csvErr, sqlErr)
	}

	merged := MergeResults(csvAns, sqlAns)

	// When both sides answered, ask the model for a combined reading; the
	// labeled concatenation stays as the fallback.
	if csvAns != nil && sqlAns != nil {
		var csvRows, sqlRows []map[string]any
		if csvAns.Chart != nil {
			csvRows = csvAns.Chart.Data
		}
		if sqlAns.Result != nil {
			sqlRows = sqlAns.Result.Rows
		}
		combined, err := o.completer.Complete(ctx,
			prompts.BuildComparisonPrompt(question, csvAns.Answer, sqlAns.Analysis, csvRows, sqlRows),
			prompts.AnalysisSystemMessage, 0.3)
		if err == nil && strings.TrimSpace(combined) != "" {
			merged.Analysis = combined
		} else if err != nil {
			o.logger.Warn("comparison analysis failed, keeping labeled merge", zap.Error(err))
		}
	}

	resp := &UnifiedResponse{
		Answer:       merged.Analysis,
		Data:         merged.Data,
		SourcesUsed:  merged.SourcesUsed,
		RowCount:     merged.RowCount,
		GeneratedSQL: generatedSQL,
	}
	if csvAns != nil {
		resp.Chart = csvAns.Chart
	}

	if decision.GenerateReport {
		if filename := o.tryGenerateReport(question, merged, resp.Chart); filename != "" {
			resp.ReportGenerated = true
			resp.ReportFilename = filename
			resp.ReportDownloadURL = "/api/reports/download/" + filename
		}
	}
	return resp, nil
}

// tryGenerateReport renders a PDF of the merged answer. A failed render is
// logged and the query still succeeds without a report.
func (o *Orchestrator) tryGenerateReport(question string, merged models.MergedResult, chart *models.ChartConfig) string {
	if o.reports == nil {
		return ""
	}

	filename, err := o.reports.Generate(models.ReportRequest{
		Title:       "Data Analysis Report",
		UserQuery:   question,
		Insights:    merged.Analysis,
		Data:        merged.Data,
		ChartConfig: chart,
		Metadata: models.ReportMetadata{
			GeneratedBy: o.completer.Model(),
			Timestamp:   time.Now().Format(time.RFC3339),
			DataSource:  strings.Join(merged.SourcesUsed, ", "),
		},
	})
	if err != nil {
		o.logger.Warn("report generation failed", zap.Error(err))
		return ""
	}
	return filename
}

// queryDatasets runs the retrieval agent over each target dataset, joining
// the per-file answers. It fails only when every target fails.
func (o *Orchestrator) queryDatasets(ctx context.Context, targets []string, uc models.UserContext, question string) (*DocumentAnswer, error) {
	names := make(map[string]string, len(uc.CSVFiles))
	for _, f := range uc.CSVFiles {
		names[f.ID] = f.Name
	}

	var (
		answers []string
		chart   *models.ChartConfig
		errs    []error
	)
	for _, id := range targets {
		ans, err := o.documents.Query(ctx, id, question)
		if err != nil {
			errs = append(errs, fmt.Errorf("dataset %s: %w", id, err))
			continue
		}
		if len(targets) > 1 {
			answers = append(answers, fmt.Sprintf("%s: %s", names[id], ans.Answer))
		} else {
			answers = append(answers, ans.Answer)
		}
		if chart == nil {
			chart = ans.Chart
		}
	}
	if len(answers) == 0 {
		return nil, errors.Join(errs...)
	}
	return &DocumentAnswer{Answer: strings.Join(answers, "\n\n"), Chart: chart}, nil
}

// queryDatabases runs the SQL agent over each target connection. The first
// successful result supplies the rows; analyses are joined.
func (o *Orchestrator) queryDatabases(ctx context.Context, userID string, targets []string, question string) (*DatabaseAnswer, map[string]string, error) {
	var (
		combined  *DatabaseAnswer
		analyses  []string
		generated = make(map[string]string)
		errs      []error
	)
	for _, id := range targets {
		ans, err := o.databases.Query(ctx, userID, id, question)
		if err != nil {
			errs = append(errs, fmt.Errorf("connection %s: %w", id, err))
			continue
		}
		generated[id] = ans.SQL
		analyses = append(analyses, ans.Analysis)
		if combined == nil {
			combined = ans
		}
	}
	if combined == nil {
		return nil, nil, errors.Join(errs...)
	}
	combined.Analysis = strings.Join(analyses, "\n\n")
	return combined, generated, nil
}

func wantsReport(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range reportKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func entryIDs(entries []models.SourceEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// resolveTargets maps model-chosen targets to entry ids. Models sometimes
// answer with the display name instead of the id, so both are accepted;
// anything matching neither is dropped.
func resolveTargets(targets []string, entries []models.SourceEntry) []string {
	byName := make(map[string]string, len(entries))
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
		byName[e.Name] = e.ID
	}
	var kept []string
	for _, t := range targets {
		switch {
		case known[t]:
			kept = append(kept, t)
		case byName[t] != "":
			kept = append(kept, byName[t])
		}
	}
	return kept
}
