package prompts

import (
	"fmt"
	"strings"

	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

// BuildRoutingPrompt asks the model which of the user's registered sources a
// question should be answered from. The model must answer with a single
// JSON object matching models.RoutingDecision.
func BuildRoutingPrompt(question string, uc models.UserContext) string {
	var b strings.Builder

	b.WriteString("Decide which data sources are needed to answer a question.\n\n")
	b.WriteString("Available sources:\n")

	if len(uc.CSVFiles) > 0 {
		b.WriteString("Uploaded files (type csv):\n")
		for _, f := range uc.CSVFiles {
			fmt.Fprintf(&b, "- id: %s, name: %s\n", f.ID, f.Name)
		}
	}
	if len(uc.SQLDatabases) > 0 {
		b.WriteString("Live databases (type sql):\n")
		for _, d := range uc.SQLDatabases {
			fmt.Fprintf(&b, "- id: %s, name: %s\n", d.ID, d.Name)
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", question)

	b.WriteString(`Respond with a single JSON object, nothing else:
{
  "sources": ["csv" and/or "sql"],
  "csv_targets": [ids of files to search],
  "sql_targets": [ids of databases to query],
  "generate_report": true if the user asked for a report or document, else false
}
`)
	return b.String()
}

// RoutingSystemMessage is the system prompt for source classification.
const RoutingSystemMessage = "You are a query router. You always answer with valid JSON and nothing else."
