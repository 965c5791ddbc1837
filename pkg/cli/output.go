package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/history"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is the styled report (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", NewConfigError("format", fmt.Sprintf("unsupported format %q (want text or json)", s))
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// HistoryPage is one page of stored analyses as printed by the CLI.
type HistoryPage struct {
	Analyses []*history.Record `json:"analyses"`
	Total    int64             `json:"total"`
}

// TextFormatter renders analysis results and history as styled text and
// anything else with %v.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *analysis.AnalysisResult:
		return RenderReport(w, v)
	case HistoryPage:
		return RenderHistory(w, v.Analyses, v.Total)
	case *history.Record:
		if v.Result != nil {
			return RenderReport(w, v.Result)
		}
		_, err := fmt.Fprintf(w, "%s %s: %s\n", v.ID, v.Status, v.Error)
		return err
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{}
}
