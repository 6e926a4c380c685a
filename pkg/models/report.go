package models

import "time"

// ReportMetadata records provenance for a generated report.
type ReportMetadata struct {
	GeneratedBy string `json:"generatedBy"`
	Timestamp   string `json:"timestamp"`
	DataSource  string `json:"dataSource"`
}

// ReportRequest is the input contract of the report writer.
type ReportRequest struct {
	Title       string           `json:"title"`
	UserQuery   string           `json:"userQuery"`
	Insights    string           `json:"insights"`
	Data        []map[string]any `json:"data"`
	ChartConfig *ChartConfig     `json:"chartConfig,omitempty"`
	Metadata    ReportMetadata   `json:"metadata"`
}

// ReportInfo describes one generated report file on disk.
type ReportInfo struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}
