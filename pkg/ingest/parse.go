package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Format names a supported tabular file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// Table is a parsed file: a header row plus data rows, all as strings.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Parse decodes raw file bytes into a table.
func Parse(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatExcel:
		return parseExcel(data)
	default:
		return parseCSV(data)
	}
}

func parseCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file contains no rows")
	}
	return tableFromRecords(records)
}

// parseExcel reads the first sheet of a workbook.
func parseExcel(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s contains no rows", sheets[0])
	}
	return tableFromRecords(records)
}

func tableFromRecords(records [][]string) (*Table, error) {
	header := records[0]
	if len(header) == 0 {
		return nil, fmt.Errorf("file has an empty header row")
	}

	table := &Table{Columns: header, Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		// Ragged rows are padded so every row matches the header width.
		row := make([]string, len(header))
		copy(row, rec)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
