package ingest

import "strconv"

// Profile summarizes a parsed table. It is stored as dataset metadata and
// returned by the dataset info endpoint.
type Profile struct {
	RowCount     int               `json:"rowCount"`
	ColumnCount  int               `json:"columnCount"`
	Columns      []string          `json:"columns"`
	Dtypes       map[string]string `json:"dtypes"`
	MissingCount map[string]int    `json:"missingValues"`
}

// BuildProfile computes per-column types and missing-value counts.
func BuildProfile(table *Table) Profile {
	p := Profile{
		RowCount:     len(table.Rows),
		ColumnCount:  len(table.Columns),
		Columns:      table.Columns,
		Dtypes:       make(map[string]string, len(table.Columns)),
		MissingCount: make(map[string]int, len(table.Columns)),
	}

	for i, col := range table.Columns {
		var values []string
		missing := 0
		for _, row := range table.Rows {
			if row[i] == "" {
				missing++
				continue
			}
			values = append(values, row[i])
		}
		p.Dtypes[col] = inferType(values)
		p.MissingCount[col] = missing
	}
	return p
}

// inferType classifies a column as int64, float64, bool, or object, in the
// spirit of dataframe dtype inference. Empty columns are object.
func inferType(values []string) string {
	if len(values) == 0 {
		return "object"
	}

	allInt, allFloat, allBool := true, true, true
	for _, v := range values {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
		}
		if _, err := strconv.ParseBool(v); err != nil {
			allBool = false
		}
		if !allInt && !allFloat && !allBool {
			return "object"
		}
	}

	switch {
	case allInt:
		return "int64"
	case allFloat:
		return "float64"
	case allBool:
		return "bool"
	default:
		return "object"
	}
}
