package tui

import (
	"bytes"
	"fmt"
	"io"
)

const (
	hideCursor       = "\033[?25l"
	showCursor       = "\033[?25h"
	enterAltScreen   = "\033[?1049h"
	leaveAltScreen   = "\033[?1049l"
	cursorHome       = "\033[H"
	clearToLineEnd   = "\033[K"
	clearToScreenEnd = "\033[J"
	resetStyle       = "\033[m"
)

// writer draws frames to a terminal.
type writer struct {
	file io.Writer
	// The last frame drawn, used to skip redundant redraws.
	last []byte
}

func newWriter(file io.Writer) *writer {
	return &writer{file: file}
}

// draw redraws the whole screen with the frame. Nothing is written if the
// frame is the same as the last one, unless full is true.
func (w *writer) draw(f Frame, full bool) error {
	buf := encodeFrame(f)
	if !full && bytes.Equal(buf, w.last) {
		return nil
	}
	w.last = buf
	_, err := w.file.Write(buf)
	return err
}

func encodeFrame(f Frame) []byte {
	var buf bytes.Buffer
	buf.WriteString(hideCursor + cursorHome)
	for i, line := range f.Lines {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		for _, seg := range line {
			sgr := seg.Style.SGR()
			if sgr != "" {
				buf.WriteString("\033[" + sgr + "m")
			}
			buf.WriteString(seg.Text)
			if sgr != "" {
				buf.WriteString(resetStyle)
			}
		}
		buf.WriteString(clearToLineEnd)
	}
	buf.WriteString(clearToScreenEnd)
	fmt.Fprintf(&buf, "\033[%d;%dH", f.Cursor.Line+1, f.Cursor.Col+1)
	buf.WriteString(showCursor)
	return buf.Bytes()
}
