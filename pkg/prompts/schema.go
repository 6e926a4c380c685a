// Package prompts builds the LLM prompts used by the agents: source
// routing, SQL generation, result analysis, and grounded answering.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

// RenderSchema formats a schema map for inclusion in a prompt, one table
// block per line group, tables in name order for stable prompts.
func RenderSchema(schema models.Schema) string {
	tables := make([]string, 0, len(schema))
	for t := range schema {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var b strings.Builder
	for _, table := range tables {
		fmt.Fprintf(&b, "Table: %s\n", table)
		b.WriteString("Columns:\n")
		for _, col := range schema[table] {
			fmt.Fprintf(&b, "- %s (%s)\n", col.Name, col.Type)
		}
		b.WriteString("\n")
	}
	return b.String()
}
