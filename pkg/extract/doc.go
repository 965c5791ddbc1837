// Package extract turns a free-text model completion into a structured
// analysis.AnalysisResult.
//
// # Grammar
//
// The completion is scanned line by line. The four section headers requested
// by package prompt are recognized case-insensitively and in any order, with
// or without markdown decoration:
//
//	## 1. PERFORMANCE ISSUES
//	**INDEX RECOMMENDATIONS:**
//	3) Query Rewrite Suggestions
//	ESTIMATED IMPACT
//
// Text before the first header, text under unknown headers and text under a
// repeated header is kept in the summary. Markdown headings deeper than the
// section headings are treated as content.
//
// Per section:
//
//   - Performance issues: one issue per bullet or line; wrapped lines join
//     the previous bullet.
//   - Index recommendations: every CREATE INDEX statement becomes an
//     IndexSuggestion. Table and columns come from the ON table (...) clause;
//     the estimated impact is the text that follows the statement.
//   - Query rewrite suggestions: Original/Suggested/Reason labels, inline or
//     followed by a code block, or two consecutive code blocks form a pair.
//   - Estimated impact: each bullet becomes an anti-pattern finding with
//     default severity medium; the section prose goes to the summary.
//
// Bullets in any other place become findings only when they carry an
// explicit severity marker such as "Severity: high", "[low]" or "(critical)".
//
// # Totality
//
// Extract never fails and never panics. If no header is recognized, or no
// structured field could be filled, the summary is the raw completion
// verbatim so nothing the model said is lost.
package extract
