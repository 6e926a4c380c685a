package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	data := []byte("id,name,score\n1,Alice,90\n2,Bob,\n3,Cara,78\n")

	table, err := Parse(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score"}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"2", "Bob", ""}, table.Rows[1])
}

func TestParseCSVPadsRaggedRows(t *testing.T) {
	data := []byte("a,b,c\n1,2\n")

	table, err := Parse(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", ""}, table.Rows[0])
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := Parse([]byte(""), FormatCSV)
	assert.Error(t, err)
}

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatExcel, FormatFromName("report.XLSX"))
	assert.Equal(t, FormatExcel, FormatFromName("legacy.xls"))
	assert.Equal(t, FormatCSV, FormatFromName("sales.csv"))
	assert.Equal(t, FormatCSV, FormatFromName("https://bucket/files/sales.csv"))
}

func TestBuildProfile(t *testing.T) {
	table := &Table{
		Columns: []string{"id", "price", "active", "name"},
		Rows: [][]string{
			{"1", "9.99", "true", "Alice"},
			{"2", "12", "false", ""},
			{"3", "", "true", "Cara"},
		},
	}

	p := BuildProfile(table)
	assert.Equal(t, 3, p.RowCount)
	assert.Equal(t, 4, p.ColumnCount)
	assert.Equal(t, "int64", p.Dtypes["id"])
	assert.Equal(t, "float64", p.Dtypes["price"])
	assert.Equal(t, "bool", p.Dtypes["active"])
	assert.Equal(t, "object", p.Dtypes["name"])
	assert.Equal(t, 1, p.MissingCount["price"])
	assert.Equal(t, 1, p.MissingCount["name"])
	assert.Equal(t, 0, p.MissingCount["id"])
}
