package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/overlay"
	"src.codepad.dev/pkg/session"
	"src.codepad.dev/pkg/ui"
	"src.codepad.dev/pkg/wcwidth"
)

// Title lines of the playground.
const (
	Title    = "Free JS / TS Compiler"
	Subtitle = "with Vim Mode 🤓"
)

// RunningText is shown in the output pane while a run is in flight.
const RunningText = "Running…"

// The smallest terminal the layout fits in.
const (
	minWidth  = 20
	minHeight = 6
)

// Theme holds the styles of the parts of the screen.
type Theme struct {
	Title   ui.Style
	Toolbar ui.Style
	Gutter  ui.Style
	Output  ui.Style
	Error   ui.Style
	Status  ui.Style
	Hint    ui.Style
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	return Theme{
		Title:   ui.Style{Bold: true},
		Toolbar: ui.Style{Inverse: true},
		Gutter:  ui.Style{Dim: true},
		Output:  ui.Style{Foreground: ui.Green},
		Error:   ui.Style{Foreground: ui.Red},
		Status:  ui.Style{Foreground: ui.Yellow},
		Hint:    ui.Style{Dim: true},
	}
}

// Set parses style and uses it for the named part of the screen.
func (t *Theme) Set(part, style string) error {
	field, ok := map[string]*ui.Style{
		"title":   &t.Title,
		"toolbar": &t.Toolbar,
		"gutter":  &t.Gutter,
		"output":  &t.Output,
		"error":   &t.Error,
		"status":  &t.Status,
		"hint":    &t.Hint,
	}[part]
	if !ok {
		return fmt.Errorf("unknown part of the screen: %s", part)
	}
	parsed, err := ui.ParseStyle(style)
	if err != nil {
		return fmt.Errorf("style for %s: %w", part, err)
	}
	*field = parsed
	return nil
}

// Segment is a run of text drawn in one style.
type Segment struct {
	Style ui.Style
	Text  string
}

// Line is a row of the screen.
type Line []Segment

// Width returns the number of columns the line occupies.
func (l Line) Width() int {
	w := 0
	for _, seg := range l {
		w += wcwidth.Of(seg.Text)
	}
	return w
}

// String returns the text of the line without styles.
func (l Line) String() string {
	var sb strings.Builder
	for _, seg := range l {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// Pos is a position on the screen, 0-based.
type Pos struct {
	Line, Col int
}

// Frame is the content of the whole screen.
type Frame struct {
	Lines  []Line
	Cursor Pos
}

// Texts returns the text of every line without styles.
func (f Frame) Texts() []string {
	texts := make([]string, len(f.Lines))
	for i, l := range f.Lines {
		texts[i] = l.String()
	}
	return texts
}

// view lays out the screen. It keeps the scroll position of the editor pane
// between frames.
type view struct {
	width, height int
	// Index of the first document line shown in the editor pane.
	top int
	// Describes the bindings in the status bar, such as "F5 run".
	hints string
	theme Theme
}

// render lays out a frame for the given state of the session. The content and
// dot are taken from buf rather than the snapshot, so that the frame matches
// the buffer the cursor position was computed from.
func (v *view) render(s session.Snapshot, buf document.Buffer) Frame {
	w, h := v.width, v.height
	if w < minWidth || h < minHeight {
		return Frame{Lines: []Line{{{ui.Style{}, wcwidth.Trim("Terminal too small", w)}}}}
	}

	lines := make([]Line, 0, h)
	lines = append(lines,
		Line{{v.theme.Title, center(Title, w)}},
		Line{{ui.Style{}, center(Subtitle, w)}},
		v.toolbar(s))

	bodyHeight := h - 4
	editorWidth := w / 2
	outputWidth := w - editorWidth - 1
	editor, cursor := v.editorPane(buf, editorWidth, bodyHeight)
	output := v.outputPane(s, outputWidth, bodyHeight)
	for i := 0; i < bodyHeight; i++ {
		row := append(Line{}, editor[i]...)
		row = append(row, Segment{v.theme.Gutter, "│"})
		row = append(row, output[i]...)
		lines = append(lines, row)
	}
	lines = append(lines, v.statusBar(s))

	cursor.Line += 3
	return Frame{Lines: lines, Cursor: cursor}
}

func (v *view) toolbar(s session.Snapshot) Line {
	vimButton := "Enable Vim"
	if s.Overlay == overlay.Enabled {
		vimButton = "Disable Vim"
	}
	left := fmt.Sprintf(" [%s ▾] [%s]", s.Language.DisplayName(), vimButton)
	right := "[Run ▶] "
	return Line{{v.theme.Toolbar, spread(left, right, v.width)}}
}

func (v *view) statusBar(s session.Snapshot) Line {
	status := ""
	if s.StatusVisible {
		status = " " + s.Status
	}
	hints := v.hints + " "
	statusWidth := v.width - wcwidth.Of(hints)
	if statusWidth < 0 {
		return Line{{v.theme.Status, wcwidth.Force(status, v.width)}}
	}
	return Line{
		{v.theme.Status, wcwidth.Force(status, statusWidth)},
		{v.theme.Hint, hints},
	}
}

// Lays out the editor pane, and returns its rows and the position of the
// cursor relative to the pane.
func (v *view) editorPane(buf document.Buffer, width, height int) ([]Line, Pos) {
	docLines := buf.Lines()
	dotLine := buf.Line()
	if dotLine < v.top {
		v.top = dotLine
	} else if dotLine >= v.top+height {
		v.top = dotLine - height + 1
	}

	gutterWidth := len(fmt.Sprint(len(docLines))) + 1
	if gutterWidth < 4 {
		gutterWidth = 4
	}
	textWidth := width - gutterWidth

	rows := make([]Line, height)
	for i := range rows {
		n := v.top + i
		if n >= len(docLines) {
			rows[i] = Line{{ui.Style{}, strings.Repeat(" ", width)}}
			continue
		}
		rows[i] = Line{
			{v.theme.Gutter, fmt.Sprintf("%*d ", gutterWidth-1, n+1)},
			{ui.Style{}, wcwidth.Force(expandTabs(docLines[n]), textWidth)},
		}
	}

	col := wcwidth.Of(expandTabs(buf.Content[buf.LineStart():buf.Dot]))
	if col > textWidth-1 {
		col = textWidth - 1
	}
	return rows, Pos{dotLine - v.top, gutterWidth + col}
}

// Lays out the output pane. Long lines are wrapped; when the output does not
// fit, the last rows are shown.
func (v *view) outputPane(s session.Snapshot, width, height int) []Line {
	var rows []Line
	if s.Running {
		rows = append(rows, Line{{v.theme.Output, " " + RunningText}})
	} else {
		for i, line := range s.Output {
			style := v.theme.Output
			if s.Raised && i == len(s.Output)-1 {
				style = v.theme.Error
			}
			for _, part := range strings.Split(line, "\n") {
				for _, chunk := range wrap(expandTabs(part), width-1) {
					rows = append(rows, Line{{style, " " + chunk}})
				}
			}
		}
	}
	if len(rows) > height {
		rows = rows[len(rows)-height:]
	}
	for len(rows) < height {
		rows = append(rows, nil)
	}
	for i, row := range rows {
		if pad := width - row.Width(); pad > 0 {
			rows[i] = append(row, Segment{ui.Style{}, strings.Repeat(" ", pad)})
		}
	}
	return rows
}

// Splits s into chunks no wider than width. An empty s gives one empty chunk.
func wrap(s string, width int) []string {
	if width < 1 {
		return []string{""}
	}
	var chunks []string
	for {
		chunk := wcwidth.Trim(s, width)
		if len(chunk) == 0 && len(s) > 0 {
			// A rune wider than the pane.
			_, size := utf8.DecodeRuneInString(s)
			chunk = s[:size]
		}
		chunks = append(chunks, chunk)
		s = s[len(chunk):]
		if s == "" {
			return chunks
		}
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

func center(s string, width int) string {
	s = wcwidth.Trim(s, width)
	left := (width - wcwidth.Of(s)) / 2
	return wcwidth.Force(strings.Repeat(" ", left)+s, width)
}

// Places left at the start and right at the end of a row of the given width.
// The right part is dropped if both do not fit.
func spread(left, right string, width int) string {
	gap := width - wcwidth.Of(left) - wcwidth.Of(right)
	if gap < 1 {
		return wcwidth.Force(left, width)
	}
	return left + strings.Repeat(" ", gap) + right
}
