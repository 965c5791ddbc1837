// Package analysis defines the request and result types of a query
// performance analysis.
package analysis

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Default request limits, in characters.
const (
	DefaultMaxQueryLength   = 50000
	DefaultMaxContextLength = 5000
)

// Severity of an anti-pattern finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// AnalysisRequest is an inbound request to analyze one query.
type AnalysisRequest struct {
	Query   string `json:"query"`
	Context string `json:"context,omitempty"`
}

// Limits bounds request field lengths.
type Limits struct {
	MaxQueryLength   int
	MaxContextLength int
}

// DefaultLimits returns the standard request limits.
func DefaultLimits() Limits {
	return Limits{MaxQueryLength: DefaultMaxQueryLength, MaxContextLength: DefaultMaxContextLength}
}

// Validate checks the request against the default limits.
func (r AnalysisRequest) Validate() error {
	return r.ValidateWith(DefaultLimits())
}

// ValidateWith checks the request against limits. Zero limits fall back to
// the defaults.
func (r AnalysisRequest) ValidateWith(limits Limits) error {
	if limits.MaxQueryLength <= 0 {
		limits.MaxQueryLength = DefaultMaxQueryLength
	}
	if limits.MaxContextLength <= 0 {
		limits.MaxContextLength = DefaultMaxContextLength
	}

	if strings.TrimSpace(r.Query) == "" {
		return &ValidationError{Field: "query", Message: "query is required"}
	}
	if n := utf8.RuneCountInString(r.Query); n > limits.MaxQueryLength {
		return &ValidationError{Field: "query", Message: lengthMessage("query", n, limits.MaxQueryLength)}
	}
	if n := utf8.RuneCountInString(r.Context); n > limits.MaxContextLength {
		return &ValidationError{Field: "context", Message: lengthMessage("context", n, limits.MaxContextLength)}
	}
	return nil
}

// IndexSuggestion is a CREATE INDEX statement proposed by the model.
type IndexSuggestion struct {
	Table           string   `json:"table"`
	Columns         []string `json:"columns"`
	CreateStatement string   `json:"create_statement"`
	EstimatedImpact string   `json:"estimated_impact"`
}

// QueryRewrite pairs an original query fragment with a suggested one.
type QueryRewrite struct {
	Original  string `json:"original"`
	Suggested string `json:"suggested"`
	Reason    string `json:"reason"`
}

// AntiPatternFinding is a problematic construct reported with a severity.
type AntiPatternFinding struct {
	Pattern     string   `json:"pattern"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Fix         string   `json:"fix"`
}

// AnalysisResult is the structured form of a model completion.
type AnalysisResult struct {
	Query            string               `json:"query"`
	Issues           []string             `json:"issues"`
	IndexSuggestions []IndexSuggestion    `json:"index_suggestions"`
	QueryRewrites    []QueryRewrite       `json:"query_rewrites"`
	AntiPatterns     []AntiPatternFinding `json:"anti_patterns"`
	Summary          string               `json:"summary"`
	AnalyzedAt       time.Time            `json:"analyzed_at"`

	Provider     string `json:"provider,omitempty"`
	FallbackUsed bool   `json:"fallback_used"`
	RequestID    string `json:"request_id,omitempty"`
}

// NewResult returns a result with empty, non-nil lists.
func NewResult(query string, analyzedAt time.Time) *AnalysisResult {
	return &AnalysisResult{
		Query:            query,
		Issues:           []string{},
		IndexSuggestions: []IndexSuggestion{},
		QueryRewrites:    []QueryRewrite{},
		AntiPatterns:     []AntiPatternFinding{},
		AnalyzedAt:       analyzedAt,
	}
}

// Empty reports whether no structured field was populated.
func (r *AnalysisResult) Empty() bool {
	return len(r.Issues) == 0 && len(r.IndexSuggestions) == 0 &&
		len(r.QueryRewrites) == 0 && len(r.AntiPatterns) == 0
}
