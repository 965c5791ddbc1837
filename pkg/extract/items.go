package extract

import (
	"regexp"
	"strings"
)

var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+`)

// item is one logical list entry: a bullet plus its wrapped lines, or a
// single plain line.
type item struct {
	text   string
	line   int
	bullet bool
}

var emptyItems = map[string]bool{
	"none": true, "n/a": true, "none found": true, "none identified": true,
	"no issues found": true, "not applicable": true,
}

// listItems groups lines into items. Fenced code lines join the open item.
func listItems(lines []string, offset int) []item {
	var items []item
	open := false
	prevBlank := true
	inFence := false

	for i, line := range lines {
		if isFence(line) {
			inFence = !inFence
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			prevBlank = true
			if !inFence {
				open = false
			}
			continue
		}

		switch {
		case inFence && open:
			items[len(items)-1].text += " " + trimmed
		case !inFence && bulletPrefix.MatchString(line):
			items = append(items, item{text: bulletPrefix.ReplaceAllString(line, ""), line: offset + i, bullet: true})
			open = true
		case !inFence && strings.HasPrefix(trimmed, "#"):
			items = append(items, item{text: strings.TrimLeft(trimmed, "# "), line: offset + i, bullet: true})
			open = true
		case open && !prevBlank && (items[len(items)-1].bullet || startsIndented(line)):
			items[len(items)-1].text += " " + trimmed
		default:
			items = append(items, item{text: trimmed, line: offset + i})
			open = true
		}
		prevBlank = false
	}

	out := items[:0]
	for _, it := range items {
		it.text = cleanInline(it.text)
		if it.text == "" || emptyItems[strings.ToLower(strings.TrimRight(it.text, "."))] {
			continue
		}
		out = append(out, it)
	}
	return out
}

func startsIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// cleanInline collapses whitespace and strips emphasis that wraps the
// whole text.
func cleanInline(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, m := range []string{"**", "__"} {
		if len(s) > 2*len(m) && strings.HasPrefix(s, m) && strings.HasSuffix(s, m) && !strings.Contains(s[len(m):len(s)-len(m)], m) {
			s = s[len(m) : len(s)-len(m)]
		}
	}
	return strings.TrimSpace(s)
}

// joinText renders lines as trimmed prose, dropping fence markers.
func joinText(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isFence(line) {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
