// Package sqlguard validates generated SQL before it reaches a live
// database.
//
// The validator is a denylist, not a parser-backed guarantee: keyword
// matching can be bypassed via comments, encoding, or semantically
// equivalent constructs. Execution also runs under a hard row limit and the
// question text is screened with libinjection heuristics, but a structural
// SQL parser remains the known hardening gap here.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
)

// deniedKeywords are statement keywords that must never appear in a query,
// checked as whole words against the upper-cased text.
var deniedKeywords = []string{"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "TRUNCATE"}

var deniedPattern = regexp.MustCompile(`\b(` + strings.Join(deniedKeywords, "|") + `)\b`)

// Result is the validator's verdict.
type Result struct {
	Valid   bool
	Message string
}

// Validate checks that sql is a single read-only SELECT statement.
//
// Rule 1: the statement, trimmed and case-folded, must begin with SELECT.
// Rule 2: the statement must not contain any denied keyword as a whole word;
// the first match is named in the message.
func Validate(sql string) Result {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	if !strings.HasPrefix(upper, "SELECT") {
		return Result{Valid: false, Message: "Only SELECT queries are allowed"}
	}

	if match := deniedPattern.FindString(upper); match != "" {
		return Result{Valid: false, Message: fmt.Sprintf("Keyword %s is not allowed", match)}
	}

	return Result{Valid: true, Message: "Query is valid"}
}
