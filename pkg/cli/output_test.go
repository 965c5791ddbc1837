package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/history"
)

func sampleResult() *analysis.AnalysisResult {
	r := analysis.NewResult("SELECT * FROM users WHERE email = $1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	r.Issues = []string{"Sequential scan on users"}
	r.IndexSuggestions = []analysis.IndexSuggestion{{
		Table:           "users",
		Columns:         []string{"email"},
		CreateStatement: "CREATE INDEX idx_users_email ON users(email);",
		EstimatedImpact: "high",
	}}
	r.QueryRewrites = []analysis.QueryRewrite{{
		Original:  "SELECT *",
		Suggested: "SELECT id, email",
		Reason:    "fewer columns",
	}}
	r.AntiPatterns = []analysis.AntiPatternFinding{{
		Pattern:     "SELECT *",
		Severity:    analysis.SeverityMedium,
		Description: "fetches every column",
		Fix:         "list columns",
	}}
	r.Summary = "Add an index on email."
	r.Provider = "openai"
	r.FallbackUsed = true
	r.RequestID = "req-1"
	return r
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "json", want: FormatJSON},
		{in: "csv", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) is not a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("NewFormatter(text) is not a TextFormatter")
	}
}

func TestJSONFormatter_Result(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatJSON).FormatTo(buf, sampleResult()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got analysis.AnalysisResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Provider != "openai" || !got.FallbackUsed || len(got.IndexSuggestions) != 1 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestTextFormatter_Report(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, sampleResult()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Query Analysis",
		"(via openai, fallback)",
		"Issues (1)",
		"  - Sequential scan on users",
		"CREATE INDEX idx_users_email ON users(email);",
		"impact: high",
		"after:  ",
		"SELECT id, email",
		"[MEDIUM]",
		"fix: list columns",
		"Add an index on email.",
		"request req-1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("report written to a buffer should not contain escape sequences")
	}
}

func TestTextFormatter_EmptyResult(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, analysis.NewResult("SELECT 1", time.Now())); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No findings.") {
		t.Errorf("report = %q", buf.String())
	}
	if strings.Contains(buf.String(), "Issues") {
		t.Errorf("empty report should omit sections: %q", buf.String())
	}
}

func TestTextFormatter_History(t *testing.T) {
	ok := history.NewRecord("r1", "SELECT *\n  FROM users", "")
	ok.Status = history.StatusSuccess
	ok.Provider = "ollama"
	failed := history.NewRecord("r2", "SELECT "+strings.Repeat("x", 100), "")
	failed.Status = history.StatusFailed

	buf := &bytes.Buffer{}
	page := HistoryPage{Analyses: []*history.Record{ok, failed}, Total: 7}
	if err := (&TextFormatter{}).FormatTo(buf, page); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], ok.ID) || !strings.Contains(lines[0], "SELECT * FROM users") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "failed") || !strings.HasSuffix(lines[1], "...") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "2 of 7 analyses" {
		t.Errorf("footer = %q", lines[2])
	}
}

func TestTextFormatter_EmptyHistory(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, HistoryPage{}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No analyses recorded." {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTextFormatter_Fallthrough(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, "test message"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "test message\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}
