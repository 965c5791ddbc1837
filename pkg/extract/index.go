package extract

import (
	"regexp"
	"strings"

	"iqtoolkit/analyzer/pkg/analysis"
)

var (
	createIndexStart = regexp.MustCompile(`(?i)\bCREATE\s+(?:UNIQUE\s+)?INDEX\b`)
	createIndexHead  = regexp.MustCompile(`(?is)^CREATE\s+(?:UNIQUE\s+)?INDEX\s+(?:CONCURRENTLY\s+)?(?:IF\s+NOT\s+EXISTS\s+)?(?:([^\s(]+)\s+)?ON\s+(?:ONLY\s+)?([^\s(]+)\s*(?:USING\s+\w+\s*)?\(`)
	indexTailClause  = regexp.MustCompile(`(?i)^\s*(?:WHERE|INCLUDE|WITH|TABLESPACE|NULLS)\b`)
	impactLabel      = regexp.MustCompile(`(?i)^(?:estimated\s+)?(?:impact|benefit|rationale|reason|why|explanation)\s*:\s*`)
)

// parseIndexes extracts every CREATE INDEX statement in lines. The second
// result is the text that did not become a statement or its impact: the
// prose before the first statement and any statement that failed to parse.
// The third reports whether any statement was found.
func parseIndexes(lines []string) ([]analysis.IndexSuggestion, string, bool) {
	text := joinCode(lines)
	starts := createIndexStart.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return nil, "", false
	}

	prefix := text[:starts[0][0]]
	prefixUsed := false
	var out []analysis.IndexSuggestion
	var leftover []string
	for i, loc := range starts {
		limit := len(text)
		if i+1 < len(starts) {
			limit = starts[i+1][0]
		}
		seg := text[loc[0]:limit]

		suggestion, end, ok := parseIndexStatement(seg)
		if !ok {
			leftover = append(leftover, strings.TrimSpace(seg))
			continue
		}
		suggestion.EstimatedImpact = cleanImpact(seg[end:])
		if suggestion.EstimatedImpact == "" && i == 0 {
			suggestion.EstimatedImpact = cleanImpact(prefix)
			prefixUsed = true
		}
		out = append(out, suggestion)
	}

	if p := strings.TrimSpace(prefix); p != "" && !prefixUsed {
		leftover = append([]string{p}, leftover...)
	}
	return out, strings.Join(leftover, "\n"), len(out) > 0
}

// parseIndexStatement parses the statement at the start of seg and returns
// the offset just past it.
func parseIndexStatement(seg string) (analysis.IndexSuggestion, int, bool) {
	m := createIndexHead.FindStringSubmatchIndex(seg)
	if m == nil {
		return analysis.IndexSuggestion{}, 0, false
	}
	open := m[1] - 1
	closeIdx := matchParen(seg, open)
	if closeIdx < 0 {
		return analysis.IndexSuggestion{}, 0, false
	}

	columns := splitTopLevel(seg[open+1 : closeIdx])
	if len(columns) == 0 {
		return analysis.IndexSuggestion{}, 0, false
	}

	end := statementEnd(seg, closeIdx+1)
	stmt := strings.Join(strings.Fields(seg[:end]), " ")
	stmt = strings.TrimRight(stmt, "; ") + ";"

	return analysis.IndexSuggestion{
		Table:           unquoteIdent(seg[m[4]:m[5]]),
		Columns:         columns,
		CreateStatement: stmt,
	}, end, true
}

// statementEnd extends a statement past its column list through a
// semicolon, or through WHERE/INCLUDE/WITH clauses on the same or
// following lines.
func statementEnd(seg string, pos int) int {
	end := pos
	line, eol := lineAt(seg, pos)
	if semi := strings.IndexByte(line, ';'); semi >= 0 {
		return pos + semi + 1
	}
	if strings.TrimSpace(line) != "" {
		if !indexTailClause.MatchString(line) {
			return pos
		}
		end = pos + len(strings.TrimRight(line, " \t`"))
	}

	for eol < len(seg) {
		start := eol + 1
		line, eol = lineAt(seg, start)
		if !indexTailClause.MatchString(line) {
			break
		}
		if semi := strings.IndexByte(line, ';'); semi >= 0 {
			return start + semi + 1
		}
		end = start + len(strings.TrimRight(line, " \t`"))
	}
	return end
}

// lineAt returns the line starting at pos and the offset of its end.
func lineAt(s string, pos int) (string, int) {
	i := strings.IndexByte(s[pos:], '\n')
	if i < 0 {
		return s[pos:], len(s)
	}
	return s[pos : pos+i], pos + i
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1. Quoted strings are skipped.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits a column list on commas outside parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	add := func(part string) {
		part = strings.Join(strings.Fields(part), " ")
		if part != "" {
			out = append(out, unquoteIdent(part))
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				add(s[start:i])
				start = i + 1
			}
		}
	}
	add(s[start:])
	return out
}

// unquoteIdent strips identifier quoting from each dotted part.
func unquoteIdent(s string) string {
	if strings.ContainsAny(s, "( ") {
		return strings.NewReplacer(`"`, "", "`", "").Replace(s)
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		p = strings.Trim(p, "`\"")
		p = strings.TrimPrefix(p, "[")
		parts[i] = strings.TrimSuffix(p, "]")
	}
	return strings.Join(parts, ".")
}

// joinCode joins lines without fence markers, keeping line structure.
func joinCode(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isFence(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// cleanImpact turns the text around a statement into one line of prose.
func cleanImpact(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = bulletPrefix.ReplaceAllString(line, "")
		line = strings.Trim(line, "`*_ ")
		line = impactLabel.ReplaceAllString(line, "")
		if line == "" || line == ";" {
			continue
		}
		parts = append(parts, line)
	}
	out := strings.Join(parts, " ")
	return strings.Trim(out, " ;:-–`")
}
