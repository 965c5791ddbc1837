package extract

import (
	"regexp"
	"strings"

	"iqtoolkit/analyzer/pkg/analysis"
)

type rewriteLabel int

const (
	labelNone rewriteLabel = iota
	labelOriginal
	labelSuggested
	labelReason
)

var rewriteLabelLine = regexp.MustCompile(`(?i)^\s*(?:[-*•+]\s+|\d+[.)]\s+)?[*_]*\s*(original|before|current|suggested|rewritten|optimi[sz]ed|after|improved|reason|why|explanation|benefit)(?:\s+(?:query|sql|version))?\s*[*_]*\s*:\s*[*_]*\s*(.*)$`)

func labelKind(word string) rewriteLabel {
	switch strings.ToLower(word) {
	case "original", "before", "current":
		return labelOriginal
	case "suggested", "rewritten", "optimized", "optimised", "after", "improved":
		return labelSuggested
	default:
		return labelReason
	}
}

// rewriteParser pairs original and suggested queries.
type rewriteParser struct {
	pairs    []analysis.QueryRewrite
	cur      *analysis.QueryRewrite
	target   rewriteLabel
	leftover []string
}

// parseRewrites returns the rewrite pairs in lines and the text that could
// not be attached to any pair.
func parseRewrites(lines []string) ([]analysis.QueryRewrite, string) {
	p := &rewriteParser{}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if isFence(line) {
			var code []string
			for i++; i < len(lines) && !isFence(lines[i]); i++ {
				code = append(code, lines[i])
			}
			p.code(strings.TrimSpace(strings.Join(code, "\n")))
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if p.target == labelReason || (p.target != labelNone && p.field(p.target) != "") {
				p.target = labelNone
			}
			continue
		}

		if m := rewriteLabelLine.FindStringSubmatch(line); m != nil {
			p.label(labelKind(m[1]), cleanCode(m[2]))
			continue
		}

		p.text(trimmed)
	}

	p.flush()
	return p.pairs, strings.Join(p.leftover, "\n")
}

func (p *rewriteParser) field(l rewriteLabel) string {
	if p.cur == nil {
		return ""
	}
	switch l {
	case labelOriginal:
		return p.cur.Original
	case labelSuggested:
		return p.cur.Suggested
	case labelReason:
		return p.cur.Reason
	}
	return ""
}

func (p *rewriteParser) set(l rewriteLabel, value string) {
	if p.cur == nil {
		p.cur = &analysis.QueryRewrite{}
	}
	switch l {
	case labelOriginal:
		p.cur.Original = joinNonEmpty(p.cur.Original, value, "\n")
	case labelSuggested:
		p.cur.Suggested = joinNonEmpty(p.cur.Suggested, value, "\n")
	case labelReason:
		p.cur.Reason = joinNonEmpty(p.cur.Reason, value, " ")
	}
}

func (p *rewriteParser) complete() bool {
	return p.cur != nil && p.cur.Original != "" && p.cur.Suggested != ""
}

// flush stores the current pair if complete; an incomplete pair is kept
// as leftover text.
func (p *rewriteParser) flush() {
	if p.cur == nil {
		return
	}
	if p.complete() {
		p.pairs = append(p.pairs, *p.cur)
	} else {
		for _, part := range []struct{ name, value string }{
			{"Original", p.cur.Original}, {"Suggested", p.cur.Suggested}, {"Reason", p.cur.Reason},
		} {
			if part.value != "" {
				p.leftover = append(p.leftover, part.name+": "+part.value)
			}
		}
	}
	p.cur = nil
	p.target = labelNone
}

func (p *rewriteParser) label(kind rewriteLabel, value string) {
	switch kind {
	case labelOriginal:
		p.flush()
	case labelSuggested:
		if p.cur != nil && p.cur.Suggested != "" {
			p.flush()
		}
	case labelReason:
		if p.cur == nil && len(p.pairs) > 0 {
			last := p.pairs[len(p.pairs)-1]
			p.pairs = p.pairs[:len(p.pairs)-1]
			p.cur = &last
		}
		if p.cur == nil {
			if value != "" {
				p.leftover = append(p.leftover, value)
			}
			return
		}
	}

	if value != "" {
		p.set(kind, value)
	}
	p.target = kind
}

// code handles a fenced block: it fills the pending label, or pairs
// unlabeled consecutive blocks.
func (p *rewriteParser) code(body string) {
	if body == "" {
		return
	}
	switch {
	case p.target == labelOriginal || p.target == labelSuggested:
		p.set(p.target, body)
		p.target = labelNone
	case p.cur == nil || p.complete():
		p.flush()
		p.set(labelOriginal, body)
	default:
		if p.cur.Original == "" {
			p.set(labelOriginal, body)
		} else {
			p.set(labelSuggested, body)
		}
	}
}

// text handles a plain line.
func (p *rewriteParser) text(line string) {
	switch p.target {
	case labelReason:
		p.set(labelReason, line)
		return
	case labelOriginal, labelSuggested:
		if p.field(p.target) == "" || startsSQLContinuation(line) {
			p.set(p.target, cleanCode(line))
			return
		}
	}
	p.target = labelNone
	p.leftover = append(p.leftover, line)
}

var sqlContinuation = regexp.MustCompile(`(?i)^(?:FROM|WHERE|AND|OR|JOIN|INNER|LEFT|RIGHT|FULL|CROSS|ON|GROUP|ORDER|HAVING|LIMIT|OFFSET|UNION|SET|VALUES|RETURNING|WITH|SELECT)\b`)

func startsSQLContinuation(line string) bool {
	return sqlContinuation.MatchString(strings.TrimSpace(line))
}

// cleanCode strips inline code quoting.
func cleanCode(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "`")
	s = strings.TrimSuffix(s, "`")
	return strings.TrimSpace(s)
}

func joinNonEmpty(a, b, sep string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + sep + b
	}
}
