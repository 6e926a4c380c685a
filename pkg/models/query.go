package models

import (
	"encoding/json"
	"strings"

	"github.com/tessellate-ai/analyst-engine/pkg/jsonutil"
)

// RoutingDecision is the classifier's answer to "which sources does this
// question need". Ephemeral, produced per query, never persisted.
type RoutingDecision struct {
	Sources        []SourceKind `json:"sources"`
	CSVTargets     []string     `json:"csv_targets"`
	SQLTargets     []string     `json:"sql_targets"`
	GenerateReport bool         `json:"generate_report"`
}

// UnmarshalJSON decodes model-authored routing JSON tolerantly: scalar
// fields where arrays are expected, stray casing, and stringified booleans
// all still parse.
func (d *RoutingDecision) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sources        json.RawMessage `json:"sources"`
		CSVTargets     json.RawMessage `json:"csv_targets"`
		SQLTargets     json.RawMessage `json:"sql_targets"`
		GenerateReport json.RawMessage `json:"generate_report"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Sources = nil
	for _, s := range jsonutil.FlexibleStringSlice(raw.Sources) {
		d.Sources = append(d.Sources, SourceKind(strings.ToLower(s)))
	}
	d.CSVTargets = jsonutil.FlexibleStringSlice(raw.CSVTargets)
	d.SQLTargets = jsonutil.FlexibleStringSlice(raw.SQLTargets)
	d.GenerateReport = jsonutil.FlexibleStringValue(raw.GenerateReport) == "true"
	return nil
}

// Needs reports whether the decision names the given source kind.
func (d *RoutingDecision) Needs(kind SourceKind) bool {
	for _, s := range d.Sources {
		if s == kind {
			return true
		}
	}
	return false
}

// MergedResult combines the partial answers of the per-source agents.
type MergedResult struct {
	Data        []map[string]any `json:"data"`
	Analysis    string           `json:"analysis"`
	SourcesUsed []string         `json:"sourcesUsed"`
	RowCount    int              `json:"rowCount"`
}

// ChartConfig is the model-authored visualization contract embedded in
// analysis text. Untrusted and best-effort: downstream consumers must
// tolerate absent or malformed configs.
type ChartConfig struct {
	Type     string           `json:"type"` // bar, line, pie, area
	Title    string           `json:"title"`
	Data     []map[string]any `json:"data"`
	XAxisKey string           `json:"xAxisKey"`
	YAxisKey string           `json:"yAxisKey"`
	Colors   []string         `json:"colors,omitempty"`
}
