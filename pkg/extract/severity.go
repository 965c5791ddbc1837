package extract

import (
	"regexp"
	"strings"

	"iqtoolkit/analyzer/pkg/analysis"
)

const severityWords = `critical|high|medium|moderate|low|minor`

var (
	severityLabeled = regexp.MustCompile(`(?i)[(\[]?\s*\bseverity\s*(?:[:=]|-|is)?\s*[*_]*\s*(` + severityWords + `)\b[*_]*\s*[)\]]?`)
	severityBracket = regexp.MustCompile(`(?i)[\[(]\s*(` + severityWords + `)(?:\s+(?:severity|priority|risk|impact))?\s*[\])]`)
	severityLeading = regexp.MustCompile(`(?i)^[*_]*\s*(` + severityWords + `)(?:\s+(?:severity|priority|risk))?\s*[*_]*\s*(?::|-|–)\s*`)
	severityLoose   = regexp.MustCompile(`(?i)\b(` + severityWords + `)\b`)
	fixLabel        = regexp.MustCompile(`(?i)[\s.;,(]*\b(?:fix|solution|recommendation|remedy)\s*:\s*`)
	patternSplit    = regexp.MustCompile(`\s*(?::|\s-\s|\s–\s|\s—\s)\s*`)
)

// normalizeSeverity maps a keyword onto the three result severities.
func normalizeSeverity(word string) analysis.Severity {
	switch strings.ToLower(word) {
	case "critical", "high":
		return analysis.SeverityHigh
	case "low", "minor":
		return analysis.SeverityLow
	default:
		return analysis.SeverityMedium
	}
}

// explicitSeverity finds a severity marker and returns the text with the
// marker removed.
func explicitSeverity(text string) (analysis.Severity, string, bool) {
	for _, re := range []*regexp.Regexp{severityLabeled, severityBracket, severityLeading} {
		if m := re.FindStringSubmatchIndex(text); m != nil {
			word := text[m[2]:m[3]]
			rest := text[:m[0]] + " " + text[m[1]:]
			return normalizeSeverity(word), strings.Join(strings.Fields(rest), " "), true
		}
	}
	if m := severityLoose.FindStringSubmatch(text); m != nil && strings.EqualFold(m[1], "critical") {
		return analysis.SeverityHigh, text, true
	}
	return "", text, false
}

// inferSeverity is explicitSeverity with a loose keyword match and a
// medium default.
func inferSeverity(text string) (analysis.Severity, string) {
	if sev, rest, ok := explicitSeverity(text); ok {
		return sev, rest
	}
	if m := severityLoose.FindStringSubmatch(text); m != nil {
		return normalizeSeverity(m[1]), text
	}
	return analysis.SeverityMedium, text
}

// newFinding splits a bullet into pattern, description and fix.
func newFinding(sev analysis.Severity, text string) analysis.AntiPatternFinding {
	text = strings.Trim(text, " .;,-")
	var fix string
	if loc := fixLabel.FindStringIndex(text); loc != nil {
		fix = strings.Trim(text[loc[1]:], " .;,)")
		text = strings.Trim(text[:loc[0]], " .;,-")
	}

	pattern, description := text, text
	if loc := patternSplit.FindStringIndex(text); loc != nil && loc[0] > 0 {
		pattern = text[:loc[0]]
		description = text[loc[1]:]
	}
	pattern = strings.Trim(pattern, "*_` ")
	description = strings.Trim(description, " -–—:")
	if description == "" {
		description = pattern
	}

	return analysis.AntiPatternFinding{
		Pattern:     pattern,
		Severity:    sev,
		Description: description,
		Fix:         fix,
	}
}

// findings turns items into anti-pattern findings. With requireMarker only
// bullets carrying an explicit severity qualify.
func findings(items []item, requireMarker bool) []analysis.AntiPatternFinding {
	var out []analysis.AntiPatternFinding
	for _, it := range items {
		if !it.bullet {
			continue
		}
		var sev analysis.Severity
		var rest string
		if requireMarker {
			var ok bool
			sev, rest, ok = explicitSeverity(it.text)
			if !ok {
				continue
			}
		} else {
			sev, rest = inferSeverity(it.text)
		}
		if f := newFinding(sev, rest); f.Pattern != "" {
			out = append(out, f)
		}
	}
	return out
}
