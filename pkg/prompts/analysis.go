package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxSampleRows caps how many result rows are inlined into an analysis
// prompt; the true row count is always stated separately.
const maxSampleRows = 10

// BuildAnalysisPrompt asks the model to explain a SQL result set in plain
// language. Only a sample of rows is inlined to keep the prompt bounded.
func BuildAnalysisPrompt(question, sql string, rows []map[string]any, totalRows int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The user asked: %s\n\n", question)
	fmt.Fprintf(&b, "This SQL query was executed:\n%s\n\n", sql)
	fmt.Fprintf(&b, "It returned %d rows.", totalRows)

	sample := rows
	if len(sample) > maxSampleRows {
		sample = sample[:maxSampleRows]
	}
	if len(sample) > 0 {
		data, err := json.Marshal(sample)
		if err == nil {
			fmt.Fprintf(&b, " The first %d rows:\n%s\n", len(sample), data)
		}
	}

	b.WriteString("\nSummarize what the data shows, in plain language, directly answering the question. Mention concrete numbers.\n")
	return b.String()
}

// BuildGroundedAnswerPrompt asks the model to answer strictly from the
// retrieved dataset chunks. The response is JSON so a chart suggestion can
// ride along with the prose answer.
func BuildGroundedAnswerPrompt(question string, contexts []string) string {
	var b strings.Builder

	b.WriteString("Answer the question using only the data excerpts below. If the excerpts do not contain the answer, say so.\n\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "Excerpt %d:\n%s\n\n", i+1, c)
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)

	b.WriteString(`Respond with a single JSON object:
{
  "answer": "your answer grounded in the excerpts",
  "chart": null or {
    "type": "bar" | "line" | "pie",
    "title": "chart title",
    "data": [{"name": "...", "value": 0}],
    "xAxisKey": "name",
    "yAxisKey": "value"
  }
}
Include a chart only when the answer is naturally numeric and comparative.
`)
	return b.String()
}

// maxComparisonRows caps how many rows from each side are inlined into a
// comparison prompt.
const maxComparisonRows = 5

// BuildComparisonPrompt merges per-source answers into one combined
// analysis when a question spanned both files and databases. Up to five
// rows from each side are inlined alongside the per-source answers.
func BuildComparisonPrompt(question string, csvAnswer, sqlAnswer string, csvRows, sqlRows []map[string]any) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The user asked: %s\n\n", question)
	b.WriteString("Two independent analyses were produced.\n\n")
	fmt.Fprintf(&b, "From uploaded files:\n%s\n", csvAnswer)
	writeSampleRows(&b, csvRows)
	fmt.Fprintf(&b, "\nFrom live databases:\n%s\n", sqlAnswer)
	writeSampleRows(&b, sqlRows)
	b.WriteString("\nCombine these into one coherent answer. Point out agreements, differences, and anything one source shows that the other does not.\n")
	return b.String()
}

func writeSampleRows(b *strings.Builder, rows []map[string]any) {
	if len(rows) > maxComparisonRows {
		rows = rows[:maxComparisonRows]
	}
	if len(rows) == 0 {
		return
	}
	if data, err := json.Marshal(rows); err == nil {
		fmt.Fprintf(b, "Sample rows:\n%s\n", data)
	}
}

// AnalysisSystemMessage is the system prompt for result summarization.
const AnalysisSystemMessage = "You are a careful data analyst. You only state what the data supports."
