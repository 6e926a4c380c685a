package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/catalog"
	"github.com/tessellate-ai/analyst-engine/pkg/config"
	"github.com/tessellate-ai/analyst-engine/pkg/datasource"
	"github.com/tessellate-ai/analyst-engine/pkg/ingest"
	"github.com/tessellate-ai/analyst-engine/pkg/llm"
	"github.com/tessellate-ai/analyst-engine/pkg/services"
	"github.com/tessellate-ai/analyst-engine/pkg/vectorstore"
)

func testMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := zap.NewNop()
	mock := &llm.MockClient{}
	store := vectorstore.NewInMemory(logger)
	cat := catalog.New(nil, logger)
	registry := datasource.NewRegistry(cat, logger)

	processor := ingest.NewProcessor(mock, store, cat, 0, logger)
	retrieval := services.NewRetrievalAgent(mock, mock, store, logger)
	sqlAgent := services.NewSQLAgent(mock, registry, logger)
	orchestrator := services.NewOrchestrator(mock, cat, retrieval, sqlAgent, nil, logger)
	writer, err := services.NewReportWriter(t.TempDir(), logger)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHealthHandler(&config.Config{Version: "test", Env: "local"}, logger).RegisterRoutes(mux)
	NewDatasetHandler(processor, retrieval, logger).RegisterRoutes(mux)
	NewSQLHandler(registry, cat, sqlAgent, logger).RegisterRoutes(mux)
	NewUnifiedHandler(orchestrator, cat, logger).RegisterRoutes(mux)
	NewReportsHandler(writer, logger).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, mux, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"analyst-engine"`)
}

func TestProcessValidation(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/process", `{"file_name": "a.csv"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file_url is required")

	rec = do(t, mux, http.MethodPost, "/api/process", `{"file_url": "http://x/a.csv"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file_name is required")

	rec = do(t, mux, http.MethodPost, "/api/process", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryValidation(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/query", `{"dataset_id": "ds1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "question is required")
}

func TestQueryUnprocessedDataset(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/query", `{"dataset_id": "never", "question": "what?"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not processed")
}

func TestDatasetInfoNotFound(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodGet, "/api/dataset/ghost/info", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSQLConnectValidation(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/sql/connect", `{"db_type": "mysql"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "host, database, and username are required")
}

func TestSQLQueryValidation(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/sql/query", `{"connection_id": "c1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/sql/query", `{"connection_id": "c1", "sql": "DROP TABLE x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "security_error")
}

func TestSQLQueryUnknownConnection(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/sql/query", `{"connection_id": "ghost", "sql": "SELECT 1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSQLDisconnectUnknownConnection(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodDelete, "/api/sql/connection/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnifiedQueryValidation(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/unified/query", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "question is required")
}

func TestUnifiedQueryNoSources(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/unified/query", `{"question": "anything"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data sources")
}

func TestUnifiedSourcesEmpty(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodGet, "/api/unified/sources", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportsDownloadRejectsTraversal(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodGet, "/api/reports/download/..%2Fsecret.pdf", "")
	// Either the mux normalizes it away or the writer rejects it; a 200 with
	// file contents is the only unacceptable outcome.
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestReportsListEmpty(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodGet, "/api/reports/list", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reports":[]`)
}

func TestReportsGenerateAndDownload(t *testing.T) {
	mux := testMux(t)

	rec := do(t, mux, http.MethodPost, "/api/reports/generate", `{"title": "T", "insights": "I"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report_")
}
