package mathtex

import "strings"

type part struct {
	data    string
	raw     string
	math    bool
	display bool
}

// splitAtDelimiters cuts text into plain and math parts. An opening delimiter
// without a matching close is left as text.
func splitAtDelimiters(text string, delims []Delimiter) []part {
	var out []part
	for text != "" {
		start, d := findOpening(text, delims)
		if start < 0 {
			out = append(out, part{data: text})
			break
		}
		end := findEndOfMath(d.Right, text, start+len(d.Left))
		if end < 0 {
			out = append(out, part{data: text})
			break
		}
		if start > 0 {
			out = append(out, part{data: text[:start]})
		}
		out = append(out, part{
			data:    text[start+len(d.Left) : end],
			raw:     text[start : end+len(d.Right)],
			math:    true,
			display: d.Display,
		})
		text = text[end+len(d.Right):]
	}
	if len(out) == 0 {
		out = append(out, part{data: ""})
	}
	return out
}

// findOpening returns the earliest opening delimiter; at equal positions the
// one listed first wins.
func findOpening(text string, delims []Delimiter) (int, Delimiter) {
	best := -1
	var found Delimiter
	for _, d := range delims {
		i := indexUnescaped(text, d.Left)
		if i >= 0 && (best < 0 || i < best) {
			best, found = i, d
		}
	}
	return best, found
}

func indexUnescaped(text, needle string) int {
	from := 0
	for {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		// "\$" is a literal dollar, but "\[" is itself a delimiter
		if needle[0] == '$' && i > 0 && text[i-1] == '\\' {
			from = i + 1
			continue
		}
		return i
	}
}

// findEndOfMath skips escaped characters and braced groups while looking for
// the closing delimiter.
func findEndOfMath(right, text string, from int) int {
	depth := 0
	for i := from; i < len(text); i++ {
		c := text[i]
		if depth <= 0 && strings.HasPrefix(text[i:], right) {
			return i
		}
		switch c {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return -1
}
