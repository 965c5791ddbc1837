package extract

import (
	"regexp"
	"strings"
	"unicode"

	"iqtoolkit/analyzer/pkg/prompt"
)

type section int

const (
	sectionPreamble section = iota
	sectionIssues
	sectionIndexes
	sectionRewrites
	sectionImpact
	sectionIgnored
)

var knownHeaders = map[string]section{
	prompt.HeaderIssues:   sectionIssues,
	prompt.HeaderIndexes:  sectionIndexes,
	prompt.HeaderRewrites: sectionRewrites,
	prompt.HeaderImpact:   sectionImpact,
}

// Words that end in a colon inside sections but are never headers.
var labelWords = map[string]bool{
	"ORIGINAL": true, "BEFORE": true, "CURRENT": true, "SUGGESTED": true,
	"REWRITTEN": true, "OPTIMIZED": true, "OPTIMISED": true, "AFTER": true,
	"IMPROVED": true, "REASON": true, "WHY": true, "EXPLANATION": true,
	"BENEFIT": true, "FIX": true, "SOLUTION": true, "RECOMMENDATION": true,
	"SEVERITY": true, "IMPACT": true, "CRITICAL": true, "HIGH": true,
	"MEDIUM": true, "MODERATE": true, "LOW": true, "MINOR": true,
	"ORIGINAL QUERY": true, "SUGGESTED QUERY": true, "REWRITTEN QUERY": true,
	"OPTIMIZED QUERY": true, "NOTE": true,
}

var ordinalPrefix = regexp.MustCompile(`^\(?\d+[.)]\s*`)

// block is a run of lines belonging to one section.
type block struct {
	section section
	start   int
	lines   []string
}

type document struct {
	blocks []block
	found  bool
}

type headerLine struct {
	text    string
	level   int
	colon   bool
	ordinal bool
}

func parseHeaderLine(line string) headerLine {
	s := strings.TrimSpace(line)
	var h headerLine
	for strings.HasPrefix(s, "#") {
		h.level++
		s = s[1:]
	}
	s = strings.Trim(s, "*_ ")
	if loc := ordinalPrefix.FindStringIndex(s); loc != nil {
		h.ordinal = true
		s = s[loc[1]:]
	}
	s = strings.Trim(s, "*_ ")
	if strings.HasSuffix(s, ":") {
		h.colon = true
		s = strings.Trim(strings.TrimSuffix(s, ":"), "*_ ")
	}
	h.text = strings.Join(strings.Fields(s), " ")
	return h
}

func isFence(line string) bool {
	s := strings.TrimSpace(line)
	return strings.HasPrefix(s, "```") || strings.HasPrefix(s, "~~~")
}

func isAllCapsTitle(text string) bool {
	letters := 0
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		case unicode.IsDigit(r), r == ' ', r == '&', r == '/', r == '-', r == '(', r == ')', r == '\'':
		default:
			return false
		}
	}
	return letters >= 4
}

// scan splits raw into section blocks.
func scan(raw string) document {
	lines := strings.Split(raw, "\n")

	var doc document
	cur := block{section: sectionPreamble}
	seen := make(map[section]bool)
	knownLevel := 0
	inFence := false

	startBlock := func(next block) {
		doc.blocks = append(doc.blocks, cur)
		cur = next
	}

	for i, line := range lines {
		if isFence(line) {
			inFence = !inFence
			cur.lines = append(cur.lines, line)
			continue
		}
		if inFence || strings.TrimSpace(line) == "" {
			cur.lines = append(cur.lines, line)
			continue
		}

		h := parseHeaderLine(line)
		if id, ok := knownHeaders[strings.ToUpper(h.text)]; ok {
			if seen[id] {
				startBlock(block{section: sectionIgnored, start: i, lines: []string{line}})
				continue
			}
			seen[id] = true
			doc.found = true
			knownLevel = h.level
			startBlock(block{section: id, start: i + 1})
			continue
		}

		if isUnknownHeader(h, cur.section, knownLevel) {
			startBlock(block{section: sectionIgnored, start: i, lines: []string{line}})
			continue
		}

		cur.lines = append(cur.lines, line)
	}
	doc.blocks = append(doc.blocks, cur)

	return doc
}

func isUnknownHeader(h headerLine, current section, knownLevel int) bool {
	if h.text == "" {
		return false
	}
	inKnown := current != sectionPreamble && current != sectionIgnored
	if h.level > 0 {
		// Sub-headings of a known section are content.
		return !inKnown || (knownLevel > 0 && h.level <= knownLevel)
	}
	// Numbered items such as "1. FULL TABLE SCAN:" are list content.
	if inKnown && h.ordinal {
		return false
	}
	return h.colon && isAllCapsTitle(h.text) && !labelWords[h.text]
}
