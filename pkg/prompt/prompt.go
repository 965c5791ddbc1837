// Package prompt builds the analysis prompt sent to every provider.
package prompt

import "strings"

// SystemPrompt is the system message used by chat-completion backends.
const SystemPrompt = "You are a database performance expert."

// Section headers, in the order the model is asked to emit them.
const (
	HeaderIssues   = "PERFORMANCE ISSUES"
	HeaderIndexes  = "INDEX RECOMMENDATIONS"
	HeaderRewrites = "QUERY REWRITE SUGGESTIONS"
	HeaderImpact   = "ESTIMATED IMPACT"
)

// Headers lists the section headers in prompt order.
var Headers = []string{HeaderIssues, HeaderIndexes, HeaderRewrites, HeaderImpact}

const instructions = `Provide your analysis in the following format:

1. ` + HeaderIssues + `
- List specific performance problems identified
- Include any anti-patterns found, marking each with "Severity: high", "Severity: medium" or "Severity: low"

2. ` + HeaderIndexes + `
- Provide complete CREATE INDEX statements
- Explain why each index will help

3. ` + HeaderRewrites + `
- Show complete rewritten queries, labelling them "Original:" and "Suggested:"
- Explain the improvements after "Reason:"

4. ` + HeaderImpact + `
- Quantify expected performance gains
- List any tradeoffs to consider

Be specific and actionable.`

// Build returns the analysis prompt for query. The Context block is only
// included when context has non-whitespace content. Build is deterministic.
func Build(query, context string) string {
	var b strings.Builder

	b.WriteString("Analyze this database query for performance issues and provide specific optimization recommendations.\n\n")
	b.WriteString("Query:\n")
	b.WriteString(query)
	b.WriteString("\n\n")

	if strings.TrimSpace(context) != "" {
		b.WriteString("Context:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}

	b.WriteString(instructions)
	return b.String()
}
