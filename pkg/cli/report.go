package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/history"
)

// Palette used by the text report.
var (
	colorAccent  = lipgloss.Color("39")
	colorDim     = lipgloss.Color("240")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("214")
	colorError   = lipgloss.Color("196")
)

// reportStyles are bound to a renderer so color support follows the
// destination writer. Plain buffers and pipes get unstyled text.
type reportStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	dim     lipgloss.Style
	code    lipgloss.Style
	success lipgloss.Style
	high    lipgloss.Style
	medium  lipgloss.Style
	low     lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		title:   r.NewStyle().Bold(true).Foreground(colorAccent),
		section: r.NewStyle().Bold(true),
		dim:     r.NewStyle().Foreground(colorDim),
		code:    r.NewStyle().Foreground(colorAccent),
		success: r.NewStyle().Foreground(colorSuccess),
		high:    r.NewStyle().Foreground(colorError).Bold(true),
		medium:  r.NewStyle().Foreground(colorWarning),
		low:     r.NewStyle().Foreground(colorDim),
	}
}

func (s reportStyles) severity(sev analysis.Severity) lipgloss.Style {
	switch sev {
	case analysis.SeverityHigh:
		return s.high
	case analysis.SeverityMedium:
		return s.medium
	default:
		return s.low
	}
}

// RenderReport writes a human-readable analysis report to w.
func RenderReport(w io.Writer, result *analysis.AnalysisResult) error {
	st := newReportStyles(w)

	var lines []string
	header := st.title.Render("Query Analysis")
	if result.Provider != "" {
		via := "via " + result.Provider
		if result.FallbackUsed {
			via += ", fallback"
		}
		header += " " + st.dim.Render("("+via+")")
	}
	lines = append(lines, header, "")

	if result.Empty() {
		lines = append(lines, st.success.Render("No findings."))
	}

	if len(result.Issues) > 0 {
		lines = append(lines, st.section.Render(fmt.Sprintf("Issues (%d)", len(result.Issues))))
		for _, issue := range result.Issues {
			lines = append(lines, "  - "+issue)
		}
		lines = append(lines, "")
	}

	if len(result.IndexSuggestions) > 0 {
		lines = append(lines, st.section.Render(fmt.Sprintf("Index Suggestions (%d)", len(result.IndexSuggestions))))
		for _, idx := range result.IndexSuggestions {
			lines = append(lines, "  "+st.code.Render(idx.CreateStatement))
			if idx.EstimatedImpact != "" {
				lines = append(lines, "    "+st.dim.Render("impact: "+idx.EstimatedImpact))
			}
		}
		lines = append(lines, "")
	}

	if len(result.QueryRewrites) > 0 {
		lines = append(lines, st.section.Render(fmt.Sprintf("Query Rewrites (%d)", len(result.QueryRewrites))))
		for _, rw := range result.QueryRewrites {
			if rw.Original != "" {
				lines = append(lines, "  before: "+rw.Original)
			}
			lines = append(lines, "  after:  "+st.code.Render(rw.Suggested))
			if rw.Reason != "" {
				lines = append(lines, "    "+st.dim.Render(rw.Reason))
			}
		}
		lines = append(lines, "")
	}

	if len(result.AntiPatterns) > 0 {
		lines = append(lines, st.section.Render(fmt.Sprintf("Anti-Patterns (%d)", len(result.AntiPatterns))))
		for _, ap := range result.AntiPatterns {
			tag := st.severity(ap.Severity).Render("[" + strings.ToUpper(string(ap.Severity)) + "]")
			lines = append(lines, "  "+tag+" "+ap.Pattern)
			if ap.Description != "" {
				lines = append(lines, "    "+ap.Description)
			}
			if ap.Fix != "" {
				lines = append(lines, "    "+st.dim.Render("fix: "+ap.Fix))
			}
		}
		lines = append(lines, "")
	}

	if result.Summary != "" {
		lines = append(lines, st.section.Render("Summary"), "  "+result.Summary, "")
	}

	if result.RequestID != "" {
		lines = append(lines, st.dim.Render("request "+result.RequestID))
	}

	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(lines, "\n"), "\n"))
	return err
}

// RenderHistory writes one line per stored analysis.
func RenderHistory(w io.Writer, records []*history.Record, total int64) error {
	st := newReportStyles(w)

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, st.dim.Render("No analyses recorded."))
		return err
	}

	for _, r := range records {
		status := st.success.Render(r.Status)
		if r.Status != history.StatusSuccess {
			status = st.high.Render(r.Status)
		}
		provider := r.Provider
		if provider == "" {
			provider = "-"
		}
		if r.FallbackUsed {
			provider += "*"
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %-7s  %-10s  %s\n",
			st.dim.Render(r.CreatedAt.Format("2006-01-02 15:04:05")),
			r.ID, status, provider, oneLine(r.Query, 60)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("%d of %d analyses", len(records), total)))
	return err
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-3]) + "..."
	}
	return s
}
