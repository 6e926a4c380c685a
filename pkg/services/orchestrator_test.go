package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/catalog"
	"github.com/tessellate-ai/analyst-engine/pkg/datasource"
	"github.com/tessellate-ai/analyst-engine/pkg/llm"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

type fakeDocAgent struct {
	answers map[string]*DocumentAnswer
	err     error
}

func (f *fakeDocAgent) Query(_ context.Context, datasetID, _ string) (*DocumentAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	ans, ok := f.answers[datasetID]
	if !ok {
		return nil, apperrors.ErrDatasetNotProcessed
	}
	return ans, nil
}

type fakeDBAgent struct {
	answers map[string]*DatabaseAnswer
	err     error
}

func (f *fakeDBAgent) Query(_ context.Context, _, connectionID, _ string) (*DatabaseAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	ans, ok := f.answers[connectionID]
	if !ok {
		return nil, apperrors.ErrConnectionNotFound
	}
	return ans, nil
}

func catalogWith(t *testing.T, csvIDs, sqlIDs []string) *catalog.Catalog {
	t.Helper()
	cat := catalog.New(nil, zap.NewNop())
	ctx := context.Background()
	for _, id := range csvIDs {
		cat.RegisterDataset(ctx, "u1", models.SourceEntry{ID: id, Name: id + ".csv"})
	}
	for _, id := range sqlIDs {
		cat.RegisterConnection(ctx, "u1", models.SourceEntry{ID: id, Name: id}, models.ConnectionCredentials{ID: id})
	}
	return cat
}

func routingCompleter(response string, err error) *llm.MockClient {
	return &llm.MockClient{
		CompleteFunc: func(_ context.Context, prompt, _ string, _ float64) (string, error) {
			if strings.Contains(prompt, "which data sources") || strings.Contains(prompt, "Available sources") {
				return response, err
			}
			return "combined analysis", nil
		},
	}
}

func TestDetectSourcesParsesDecision(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, []string{"conn1"})
	completer := routingCompleter(`{"sources": ["sql"], "csv_targets": [], "sql_targets": ["conn1"], "generate_report": false}`, nil)
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "how many orders?")
	require.NoError(t, err)
	assert.Equal(t, []models.SourceKind{models.SourceKindSQL}, decision.Sources)
	assert.Equal(t, []string{"conn1"}, decision.SQLTargets)
	assert.False(t, decision.GenerateReport)
}

func TestDetectSourcesKeywordForcesReport(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, nil)
	completer := routingCompleter(`{"sources": ["csv"], "csv_targets": ["ds1"], "sql_targets": [], "generate_report": false}`, nil)
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "give me a PDF report of sales")
	require.NoError(t, err)
	assert.True(t, decision.GenerateReport)
}

func TestDetectSourcesFallbackPrefersFiles(t *testing.T) {
	cat := catalogWith(t, []string{"ds1", "ds2"}, []string{"conn1"})
	completer := routingCompleter("", errors.New("model down"))
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "generate a report")
	require.NoError(t, err)
	assert.Equal(t, []models.SourceKind{models.SourceKindCSV}, decision.Sources)
	// The fallback queries the first file only, never every source.
	assert.Equal(t, []string{"ds1"}, decision.CSVTargets)
	// The fallback is conservative: no report without a model decision.
	assert.False(t, decision.GenerateReport)
}

func TestDetectSourcesFallbackSQLOnly(t *testing.T) {
	cat := catalogWith(t, nil, []string{"conn1"})
	completer := routingCompleter("not json at all", nil)
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "anything")
	require.NoError(t, err)
	assert.Equal(t, []models.SourceKind{models.SourceKindSQL}, decision.Sources)
	assert.Equal(t, []string{"conn1"}, decision.SQLTargets)
}

func TestDetectSourcesDropsHallucinatedTargets(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, nil)
	completer := routingCompleter(`{"sources": ["csv", "sql"], "csv_targets": ["ds1", "ghost"], "sql_targets": ["nope"], "generate_report": false}`, nil)
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "question")
	require.NoError(t, err)
	assert.Equal(t, []models.SourceKind{models.SourceKindCSV}, decision.Sources)
	assert.Equal(t, []string{"ds1"}, decision.CSVTargets)
	assert.Empty(t, decision.SQLTargets)
}

func TestDetectSourcesDropsKindWhenAllTargetsUnmatched(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, []string{"conn1"})
	completer := routingCompleter(`{"sources": ["csv", "sql"], "csv_targets": ["ds1"], "sql_targets": ["ghost"], "generate_report": false}`, nil)
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "question")
	require.NoError(t, err)
	// The SQL side named only unmatched targets: it contributes nothing
	// rather than fanning out to databases the classifier never chose.
	assert.Equal(t, []models.SourceKind{models.SourceKindCSV}, decision.Sources)
	assert.Equal(t, []string{"ds1"}, decision.CSVTargets)
	assert.Empty(t, decision.SQLTargets)
}

func TestDetectSourcesWidensExplicitlyEmptyTargets(t *testing.T) {
	cat := catalogWith(t, []string{"ds1", "ds2"}, nil)
	completer := routingCompleter(`{"sources": ["csv"], "csv_targets": [], "sql_targets": [], "generate_report": false}`, nil)
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "question")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ds1", "ds2"}, decision.CSVTargets)
}

func TestDetectSourcesResolvesTargetNames(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, nil)
	completer := routingCompleter(`{"sources": ["csv"], "csv_targets": ["ds1.csv"], "sql_targets": [], "generate_report": false}`, nil)
	o := NewOrchestrator(completer, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	decision, _, err := o.DetectSources(context.Background(), "u1", "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"ds1"}, decision.CSVTargets)
}

func TestDetectSourcesNoSources(t *testing.T) {
	cat := catalog.New(nil, zap.NewNop())
	o := NewOrchestrator(&llm.MockClient{}, cat, &fakeDocAgent{}, &fakeDBAgent{}, nil, zap.NewNop())

	_, _, err := o.DetectSources(context.Background(), "nobody", "question")
	assert.ErrorIs(t, err, apperrors.ErrNoDataSources)
}

func TestMergeResultsBothSources(t *testing.T) {
	csvAns := &DocumentAnswer{
		Answer: "files say 100",
		Chart: &models.ChartConfig{
			Data: []map[string]any{{"name": "Nairobi", "value": 100}},
		},
	}
	sqlAns := &DatabaseAnswer{
		Analysis: "database says 90",
		Result: &datasource.QueryResult{
			Rows:     []map[string]any{{"city": "Nairobi", "sales": 90}},
			RowCount: 1,
		},
	}

	merged := MergeResults(csvAns, sqlAns)
	assert.Equal(t, []string{"CSV", "SQL Database"}, merged.SourcesUsed)
	// Structured rows come from the SQL side only, never deduplicated.
	assert.Equal(t, 1, merged.RowCount)
	assert.Equal(t, map[string]any{"city": "Nairobi", "sales": 90}, merged.Data[0])
	assert.Contains(t, merged.Analysis, "From CSV:\nfiles say 100")
	assert.Contains(t, merged.Analysis, "From SQL Database:\ndatabase says 90")
}

func TestMergeResultsSingleSource(t *testing.T) {
	merged := MergeResults(&DocumentAnswer{Answer: "only files"}, nil)
	assert.Equal(t, []string{"CSV"}, merged.SourcesUsed)
	assert.Equal(t, "only files", merged.Analysis)
	assert.Zero(t, merged.RowCount)

	merged = MergeResults(nil, &DatabaseAnswer{Analysis: "only db"})
	assert.Equal(t, []string{"SQL Database"}, merged.SourcesUsed)
	assert.Equal(t, "only db", merged.Analysis)
}

func TestMergeResultsCSVChartContributesNoRows(t *testing.T) {
	csvAns := &DocumentAnswer{
		Answer: "files say 100",
		Chart: &models.ChartConfig{
			Data: []map[string]any{{"name": "a", "value": 1}, {"name": "b", "value": 2}},
		},
	}

	merged := MergeResults(csvAns, nil)
	assert.Zero(t, merged.RowCount)
	assert.Empty(t, merged.Data)
}

func TestUnifiedQueryBothBranches(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, []string{"conn1"})
	completer := routingCompleter(`{"sources": ["csv", "sql"], "csv_targets": ["ds1"], "sql_targets": ["conn1"], "generate_report": false}`, nil)
	docs := &fakeDocAgent{answers: map[string]*DocumentAnswer{
		"ds1": {Answer: "files say 100"},
	}}
	dbs := &fakeDBAgent{answers: map[string]*DatabaseAnswer{
		"conn1": {
			SQL:      "SELECT 1",
			Analysis: "database says 90",
			Result:   &datasource.QueryResult{Rows: []map[string]any{{"n": 1}}, RowCount: 1},
		},
	}}
	o := NewOrchestrator(completer, cat, docs, dbs, nil, zap.NewNop())

	resp, err := o.UnifiedQuery(context.Background(), "u1", "compare sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"CSV", "SQL Database"}, resp.SourcesUsed)
	assert.Equal(t, "combined analysis", resp.Answer)
	assert.Equal(t, map[string]string{"conn1": "SELECT 1"}, resp.GeneratedSQL)
	assert.Equal(t, 1, resp.RowCount)
}

func TestUnifiedQuerySurvivesOneBranchFailing(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, []string{"conn1"})
	completer := routingCompleter(`{"sources": ["csv", "sql"], "csv_targets": ["ds1"], "sql_targets": ["conn1"], "generate_report": false}`, nil)
	docs := &fakeDocAgent{answers: map[string]*DocumentAnswer{
		"ds1": {Answer: "files say 100"},
	}}
	dbs := &fakeDBAgent{err: errors.New("connection refused")}
	o := NewOrchestrator(completer, cat, docs, dbs, nil, zap.NewNop())

	resp, err := o.UnifiedQuery(context.Background(), "u1", "compare sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"CSV"}, resp.SourcesUsed)
	assert.Equal(t, "files say 100", resp.Answer)
}

func TestUnifiedQueryAllBranchesFail(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, nil)
	completer := routingCompleter(`{"sources": ["csv"], "csv_targets": ["ds1"], "sql_targets": [], "generate_report": false}`, nil)
	docs := &fakeDocAgent{err: errors.New("store corrupt")}
	o := NewOrchestrator(completer, cat, docs, &fakeDBAgent{}, nil, zap.NewNop())

	_, err := o.UnifiedQuery(context.Background(), "u1", "question")
	assert.Error(t, err)
}

func TestUnifiedQueryGeneratesReport(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, nil)
	completer := routingCompleter(`{"sources": ["csv"], "csv_targets": ["ds1"], "sql_targets": [], "generate_report": true}`, nil)
	docs := &fakeDocAgent{answers: map[string]*DocumentAnswer{
		"ds1": {Answer: "files say 100"},
	}}
	writer, err := NewReportWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	o := NewOrchestrator(completer, cat, docs, &fakeDBAgent{}, writer, zap.NewNop())

	resp, err := o.UnifiedQuery(context.Background(), "u1", "summarize sales")
	require.NoError(t, err)
	assert.True(t, resp.ReportGenerated)
	assert.Contains(t, resp.ReportFilename, "report_")
	assert.Equal(t, "/api/reports/download/"+resp.ReportFilename, resp.ReportDownloadURL)
}

func TestUnifiedQueryReportFailureIsSwallowed(t *testing.T) {
	cat := catalogWith(t, []string{"ds1"}, nil)
	completer := routingCompleter(`{"sources": ["csv"], "csv_targets": ["ds1"], "sql_targets": [], "generate_report": true}`, nil)
	docs := &fakeDocAgent{answers: map[string]*DocumentAnswer{
		"ds1": {Answer: "files say 100"},
	}}
	// nil writer: report generation is disabled, the answer still flows.
	o := NewOrchestrator(completer, cat, docs, &fakeDBAgent{}, nil, zap.NewNop())

	resp, err := o.UnifiedQuery(context.Background(), "u1", "summarize sales")
	require.NoError(t, err)
	assert.False(t, resp.ReportGenerated)
	assert.Empty(t, resp.ReportFilename)
	assert.Equal(t, "files say 100", resp.Answer)
}
