package document

import (
	"strings"
	"unicode/utf8"
)

// Buffer is the content of a Document together with the position of the dot.
type Buffer struct {
	// Content of the buffer.
	Content string
	// Position of the dot (more commonly known as the cursor), as a byte index
	// into Content.
	Dot int
}

// InsertAtDot inserts text at the dot and moves the dot after it.
func (b *Buffer) InsertAtDot(text string) {
	*b = Buffer{
		Content: b.Content[:b.Dot] + text + b.Content[b.Dot:],
		Dot:     b.Dot + len(text),
	}
}

// DeleteLeft deletes the rune before the dot. It reports whether anything
// was deleted.
func (b *Buffer) DeleteLeft() bool {
	if b.Dot == 0 {
		return false
	}
	_, n := utf8.DecodeLastRuneInString(b.Content[:b.Dot])
	b.Content = b.Content[:b.Dot-n] + b.Content[b.Dot:]
	b.Dot -= n
	return true
}

// DeleteRight deletes the rune after the dot. It reports whether anything
// was deleted.
func (b *Buffer) DeleteRight() bool {
	if b.Dot == len(b.Content) {
		return false
	}
	_, n := utf8.DecodeRuneInString(b.Content[b.Dot:])
	b.Content = b.Content[:b.Dot] + b.Content[b.Dot+n:]
	return true
}

// Delete deletes the bytes in [from, to) and puts the dot at from. It returns
// the deleted text.
func (b *Buffer) Delete(from, to int) string {
	from, to = b.clampDot(from), b.clampDot(to)
	if from > to {
		from, to = to, from
	}
	deleted := b.Content[from:to]
	b.Content = b.Content[:from] + b.Content[to:]
	b.Dot = from
	return deleted
}

// MoveLeft moves the dot one rune to the left, without crossing line
// boundaries if sameLine is true.
func (b *Buffer) MoveLeft(sameLine bool) {
	if b.Dot == 0 {
		return
	}
	r, n := utf8.DecodeLastRuneInString(b.Content[:b.Dot])
	if sameLine && r == '\n' {
		return
	}
	b.Dot -= n
}

// MoveRight moves the dot one rune to the right, without crossing line
// boundaries if sameLine is true.
func (b *Buffer) MoveRight(sameLine bool) {
	if b.Dot == len(b.Content) {
		return
	}
	r, n := utf8.DecodeRuneInString(b.Content[b.Dot:])
	if sameLine && r == '\n' {
		return
	}
	b.Dot += n
}

// MoveUp moves the dot to the previous line, keeping the column (counted in
// runes) where possible.
func (b *Buffer) MoveUp() {
	start := b.LineStart()
	if start == 0 {
		return
	}
	col := b.Column()
	prevStart := lineStartAt(b.Content, start-1)
	b.Dot = advanceRunes(b.Content, prevStart, start-1, col)
}

// MoveDown moves the dot to the next line, keeping the column (counted in
// runes) where possible.
func (b *Buffer) MoveDown() {
	end := b.LineEnd()
	if end == len(b.Content) {
		return
	}
	col := b.Column()
	nextStart := end + 1
	b.Dot = advanceRunes(b.Content, nextStart, lineEndAt(b.Content, nextStart), col)
}

// LineStart returns the byte index of the start of the line containing the
// dot.
func (b *Buffer) LineStart() int { return lineStartAt(b.Content, b.Dot) }

// LineEnd returns the byte index of the end of the line containing the dot,
// excluding the newline.
func (b *Buffer) LineEnd() int { return lineEndAt(b.Content, b.Dot) }

// Column returns the number of runes between the start of the line and the
// dot.
func (b *Buffer) Column() int {
	return utf8.RuneCountInString(b.Content[b.LineStart():b.Dot])
}

// Line returns the 0-based index of the line containing the dot.
func (b *Buffer) Line() int {
	return strings.Count(b.Content[:b.Dot], "\n")
}

// Lines splits the content into lines. It always returns at least one
// element.
func (b *Buffer) Lines() []string {
	return strings.Split(b.Content, "\n")
}

func (b *Buffer) clampDot(dot int) int {
	if dot < 0 {
		return 0
	}
	if dot > len(b.Content) {
		return len(b.Content)
	}
	for dot > 0 && dot < len(b.Content) && !utf8.RuneStart(b.Content[dot]) {
		dot--
	}
	return dot
}

func lineStartAt(s string, i int) int {
	return strings.LastIndexByte(s[:i], '\n') + 1
}

func lineEndAt(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j != -1 {
		return i + j
	}
	return len(s)
}

// Returns the byte index n runes after from, but no further than limit.
func advanceRunes(s string, from, limit, n int) int {
	i := from
	for ; n > 0 && i < limit; n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
