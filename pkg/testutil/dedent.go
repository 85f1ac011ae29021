package testutil

import "strings"

// Dedent removes any common leading whitespace from every non-blank line in
// text. An initial newline is removed, and lines consisting only of spaces
// and tabs become empty.
//
// This lets multiline raw strings (usually JavaScript sources in tests) be
// indented along with the surrounding Go code.
func Dedent(text string) string {
	text = strings.TrimPrefix(text, "\n")
	lines := strings.Split(text, "\n")

	margin, first := "", true
	for i, line := range lines {
		if strings.TrimLeft(line, " \t") == "" {
			lines[i] = ""
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		switch {
		case first:
			margin, first = indent, false
		case strings.HasPrefix(indent, margin):
			// Deeper than the current margin; no change.
		case strings.HasPrefix(margin, indent):
			margin = indent
		default:
			// No common whitespace.
			margin = ""
		}
	}

	if margin == "" {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "\n")
}
