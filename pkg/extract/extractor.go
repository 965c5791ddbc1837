package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"iqtoolkit/analyzer/pkg/analysis"
)

// Extractor parses model completions. The zero value is ready to use.
type Extractor struct {
	// Now stamps AnalyzedAt; defaults to time.Now in UTC.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

var defaultExtractor = &Extractor{}

// Extract parses raw with the default Extractor.
func Extract(query, raw string) *analysis.AnalysisResult {
	return defaultExtractor.Extract(query, raw)
}

// Extract parses raw into a result for query. It never fails: on input it
// cannot structure, the lists are empty and Summary holds raw verbatim.
func (e *Extractor) Extract(query, raw string) (result *analysis.AnalysisResult) {
	now := e.now()

	defer func() {
		if r := recover(); r != nil {
			e.logger().Error("response extraction panicked, keeping raw text", "panic", r)
			result = rawResult(query, raw, now)
		}
	}()

	result = e.extract(query, raw, now)

	e.logger().Debug("response extracted",
		"issues", len(result.Issues),
		"index_suggestions", len(result.IndexSuggestions),
		"query_rewrites", len(result.QueryRewrites),
		"anti_patterns", len(result.AntiPatterns),
	)
	return result
}

func (e *Extractor) extract(query, raw string, now time.Time) *analysis.AnalysisResult {
	doc := scan(strings.ReplaceAll(raw, "\r\n", "\n"))
	if !doc.found {
		return rawResult(query, raw, now)
	}

	result := analysis.NewResult(query, now)
	var summary []string
	keep := func(text string) {
		if text = strings.TrimSpace(text); text != "" {
			summary = append(summary, text)
		}
	}

	for _, b := range doc.blocks {
		items := listItems(b.lines, b.start)

		switch b.section {
		case sectionIssues:
			for _, it := range items {
				result.Issues = append(result.Issues, it.text)
			}
			result.AntiPatterns = append(result.AntiPatterns, findings(items, true)...)

		case sectionIndexes:
			suggestions, leftover, ok := parseIndexes(b.lines)
			if ok {
				result.IndexSuggestions = append(result.IndexSuggestions, suggestions...)
				keep(leftover)
			} else {
				keep(joinText(b.lines))
			}
			result.AntiPatterns = append(result.AntiPatterns, findings(items, true)...)

		case sectionRewrites:
			pairs, leftover := parseRewrites(b.lines)
			result.QueryRewrites = append(result.QueryRewrites, pairs...)
			keep(leftover)
			result.AntiPatterns = append(result.AntiPatterns, findings(items, true)...)

		case sectionImpact:
			result.AntiPatterns = append(result.AntiPatterns, findings(items, false)...)
			keep(joinText(b.lines))

		default:
			keep(joinText(b.lines))
			result.AntiPatterns = append(result.AntiPatterns, findings(items, true)...)
		}
	}

	switch {
	case result.Empty():
		result.Summary = raw
	case len(summary) == 0:
		result.Summary = fmt.Sprintf("Identified %d performance issue(s), %d index suggestion(s), %d query rewrite(s) and %d anti-pattern(s).",
			len(result.Issues), len(result.IndexSuggestions), len(result.QueryRewrites), len(result.AntiPatterns))
	default:
		result.Summary = strings.Join(summary, "\n\n")
	}

	return result
}

func rawResult(query, raw string, now time.Time) *analysis.AnalysisResult {
	result := analysis.NewResult(query, now)
	result.Summary = raw
	return result
}

func (e *Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
