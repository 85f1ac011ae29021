package vim

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"src.codepad.dev/pkg/document"
)

// In normal mode, the dot may only rest after the last character of a line if
// the line is empty.
func clampNormal(b *document.Buffer) {
	if b.Dot == b.LineEnd() && b.Dot > b.LineStart() {
		b.MoveLeft(true)
	}
}

func moveRightNormal(b *document.Buffer) {
	b.MoveRight(true)
	clampNormal(b)
}

func firstNonBlank(b *document.Buffer) int {
	start, end := b.LineStart(), b.LineEnd()
	return end - len(strings.TrimLeft(b.Content[start:end], " \t"))
}

// Moves the dot to the first non-blank character of the line at the 0-based
// index i, clamped to the existing lines.
func gotoLine(b *document.Buffer, i int) {
	lines := b.Lines()
	if i >= len(lines) {
		i = len(lines) - 1
	}
	dot := 0
	for _, line := range lines[:i] {
		dot += len(line) + 1
	}
	b.Dot = dot
	b.Dot = firstNonBlank(b)
}

// Returns the byte range of n lines starting from the line of the dot,
// excluding the final newline.
func lineRange(b *document.Buffer, n int) (from, to int) {
	from = b.LineStart()
	to = b.LineEnd()
	for i := 1; i < n && to < len(b.Content); i++ {
		to = lineEndAt(b.Content, to+1)
	}
	return from, to
}

func lineEndAt(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j != -1 {
		return i + j
	}
	return len(s)
}

// Returns the byte index n runes after from, but no further than limit.
func advance(s string, from, limit, n int) int {
	i := from
	for ; n > 0 && i < limit; n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func repeatJoin(s, sep string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s
	}
	return strings.Join(parts, sep)
}

type runeClass int

const (
	blank runeClass = iota
	wordChar
	punct
)

func classOf(r rune) runeClass {
	switch {
	case unicode.IsSpace(r):
		return blank
	case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
		return wordChar
	default:
		return punct
	}
}

// Moves to the start of the next word. A word is a run of word characters or
// a run of punctuation; an empty line also counts as a word.
func wordForward(b *document.Buffer) {
	s := b.Content
	i := b.Dot
	if i == len(s) {
		return
	}
	r, n := utf8.DecodeRuneInString(s[i:])
	if c := classOf(r); c != blank {
		for i < len(s) {
			r, n = utf8.DecodeRuneInString(s[i:])
			if classOf(r) != c {
				break
			}
			i += n
		}
	}
	for i < len(s) {
		r, n = utf8.DecodeRuneInString(s[i:])
		if classOf(r) != blank {
			break
		}
		i += n
		if r == '\n' && i < len(s) && s[i] == '\n' {
			break
		}
	}
	b.Dot = i
	// No next word; stay on the last character.
	clampNormal(b)
}

// Moves to the start of the current or previous word.
func wordBackward(b *document.Buffer) {
	s := b.Content
	i := b.Dot
	for i > 0 {
		r, n := utf8.DecodeLastRuneInString(s[:i])
		if classOf(r) != blank {
			break
		}
		i -= n
	}
	if i == 0 {
		b.Dot = 0
		return
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	c := classOf(r)
	for i > 0 {
		r, n := utf8.DecodeLastRuneInString(s[:i])
		if classOf(r) != c {
			break
		}
		i -= n
	}
	b.Dot = i
}
