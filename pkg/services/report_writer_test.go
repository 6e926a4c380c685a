package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

func TestGenerateWritesPDF(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewReportWriter(dir, zap.NewNop())
	require.NoError(t, err)

	filename, err := writer.Generate(models.ReportRequest{
		Title:     "Quarterly Sales",
		UserQuery: "how did Q3 go?",
		Insights:  "Revenue grew 12% quarter over quarter.",
		Data: []map[string]any{
			{"region": "East", "revenue": 1200},
			{"region": "West", "revenue": 950},
		},
		Metadata: models.ReportMetadata{
			GeneratedBy: "test-model",
			DataSource:  "CSV, SQL Database",
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^report_\d{8}_\d{6}\.pdf$`, filename)

	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGenerateMinimalRequest(t *testing.T) {
	writer, err := NewReportWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	filename, err := writer.Generate(models.ReportRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, filename)
}

func TestPathRejectsTraversal(t *testing.T) {
	writer, err := NewReportWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret.pdf", "a/b.pdf", "..\\c.pdf", "x..y.pdf"} {
		_, err := writer.Path(name)
		assert.Error(t, err, "name=%q", name)
	}
}

func TestPathUnknownFile(t *testing.T) {
	writer, err := NewReportWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = writer.Path("report_20250101_000000.pdf")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewReportWriter(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_a.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	filename, err := writer.Generate(models.ReportRequest{Title: "Later"})
	require.NoError(t, err)

	reports, err := writer.List()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, filename, reports[0].Filename)
}
