package prompts

import (
	"fmt"
	"strings"

	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

// BuildSQLGenerationPrompt creates the text-to-SQL prompt for one dialect.
// The model is told to emit a single read-only SELECT; dialect-specific
// date-formatting guidance keeps generated queries runnable as-is.
func BuildSQLGenerationPrompt(question string, schema models.Schema, dbType string) string {
	var b strings.Builder

	b.WriteString("You are an expert SQL query generator.\n\n")
	fmt.Fprintf(&b, "Database type: %s\n\n", dbType)
	b.WriteString("Database schema:\n")
	b.WriteString(RenderSchema(schema))

	fmt.Fprintf(&b, "User question: %s\n\n", question)

	b.WriteString("Rules:\n")
	b.WriteString("1. Generate exactly one SELECT statement. Never generate DROP, DELETE, INSERT, UPDATE, ALTER, CREATE, or TRUNCATE.\n")
	b.WriteString("2. Use only tables and columns that appear in the schema above.\n")
	b.WriteString("3. Unless the question asks for everything, add LIMIT 100.\n")

	switch dbType {
	case "postgresql":
		b.WriteString("4. Use PostgreSQL syntax. Format dates with TO_CHAR, e.g. TO_CHAR(created_at, 'YYYY-MM').\n")
	default:
		b.WriteString("4. Use MySQL syntax. Format dates with DATE_FORMAT, e.g. DATE_FORMAT(created_at, '%Y-%m').\n")
	}

	b.WriteString("\nRespond with only the SQL statement, no explanation and no code fences.\n")
	return b.String()
}

// SQLSystemMessage is the system prompt for SQL generation.
const SQLSystemMessage = "You translate natural-language questions into safe, read-only SQL."
