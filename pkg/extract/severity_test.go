package extract

import (
	"testing"

	"iqtoolkit/analyzer/pkg/analysis"
)

func TestInferSeverity(t *testing.T) {
	tests := []struct {
		text string
		want analysis.Severity
	}{
		{"Cartesian join (Severity: Critical)", analysis.SeverityHigh},
		{"[LOW] Redundant DISTINCT", analysis.SeverityLow},
		{"Moderate: implicit cast on join key", analysis.SeverityMedium},
		{"**High**: OR conditions prevent index use", analysis.SeverityHigh},
		{"N+1 query pattern, minor", analysis.SeverityLow},
		{"Implicit conversion", analysis.SeverityMedium},
		{"Highly selective predicate", analysis.SeverityMedium},
		{"severity=low correlated subquery", analysis.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, _ := inferSeverity(tt.text)
			if got != tt.want {
				t.Errorf("inferSeverity(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestExplicitSeverity_RequiresMarker(t *testing.T) {
	if _, _, ok := explicitSeverity("High cardinality column used in filter"); ok {
		t.Error("a loose keyword is not an explicit marker")
	}
	if sev, rest, ok := explicitSeverity("Sort spills to disk [high]"); !ok || sev != analysis.SeverityHigh || rest != "Sort spills to disk" {
		t.Errorf("got %s %q %v", sev, rest, ok)
	}
	if sev, _, ok := explicitSeverity("Critical lock contention on hot rows"); !ok || sev != analysis.SeverityHigh {
		t.Error("critical is always explicit")
	}
}

func TestNewFinding_SplitsFix(t *testing.T) {
	sev, rest := inferSeverity("SELECT * usage: fetches every column (Severity: low) Fix: list needed columns")
	f := newFinding(sev, rest)

	want := analysis.AntiPatternFinding{
		Pattern:     "SELECT * usage",
		Severity:    analysis.SeverityLow,
		Description: "fetches every column",
		Fix:         "list needed columns",
	}
	if f != want {
		t.Errorf("finding = %#v, want %#v", f, want)
	}
}

func TestFindings_OnlyBullets(t *testing.T) {
	items := []item{
		{text: "Plain prose (Severity: high)"},
		{text: "Bullet (Severity: high)", bullet: true},
		{text: "Unmarked bullet", bullet: true},
	}
	if got := findings(items, true); len(got) != 1 || got[0].Pattern != "Bullet" {
		t.Errorf("marker-only findings = %#v", got)
	}
	if got := findings(items, false); len(got) != 2 {
		t.Errorf("section findings = %#v", got)
	}
}
