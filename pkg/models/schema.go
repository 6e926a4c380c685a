package models

// Column describes one column of a live database table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema maps table names to their columns. Derived on demand from a live
// connection and never cached across calls, so schema drift is always
// visible at the cost of re-inspection per query.
type Schema map[string][]Column
