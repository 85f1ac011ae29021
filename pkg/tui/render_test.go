package tui

import (
	"fmt"
	"strings"
	"testing"

	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/overlay"
	"src.codepad.dev/pkg/session"
	"src.codepad.dev/pkg/ui"
	"src.codepad.dev/pkg/vim"
)

func bufferOf(content string, dot int) document.Buffer {
	return document.Buffer{Content: content, Dot: dot}
}

func TestRender_Layout(t *testing.T) {
	v := &view{width: 40, height: 10, hints: "F5 run"}
	s := session.Snapshot{
		Language:      lang.JavaScript,
		Output:        []string{"Hello, World!"},
		StatusVisible: true,
		Status:        vim.NormalStatus,
		Overlay:       overlay.Enabled,
	}
	f := v.render(s, bufferOf(document.Placeholder, 0))
	texts := f.Texts()

	if len(texts) != 10 {
		t.Fatalf("got %d lines, want 10", len(texts))
	}
	for i, text := range texts {
		if w := f.Lines[i].Width(); w != 40 {
			t.Errorf("line %d %q has width %d, want 40", i, text, w)
		}
	}
	wantTrimmed := map[int]string{
		0: Title,
		1: Subtitle,
		9: vim.NormalStatus + strings.Repeat(" ", 40-len(vim.NormalStatus)-8) + "F5 run",
	}
	for i, want := range wantTrimmed {
		if got := strings.TrimSpace(texts[i]); got != want {
			t.Errorf("line %d: got %q, want %q", i, got, want)
		}
	}
	for _, want := range []string{"[JavaScript ▾]", "[Disable Vim]", "[Run ▶]"} {
		if !strings.Contains(texts[2], want) {
			t.Errorf("toolbar %q does not contain %q", texts[2], want)
		}
	}
	if want := "  1 console.log('Hel│ Hello, World!"; !strings.HasPrefix(texts[3], want) {
		t.Errorf("first body line %q does not start with %q", texts[3], want)
	}
	if f.Cursor != (Pos{3, 4}) {
		t.Errorf("cursor at %v, want {3 4}", f.Cursor)
	}
}

func TestRender_StatusHidden(t *testing.T) {
	v := &view{width: 40, height: 10}
	f := v.render(session.Snapshot{Status: vim.InsertStatus}, bufferOf("", 0))
	if got := strings.TrimSpace(f.Texts()[9]); got != "" {
		t.Errorf("status line %q, want empty", got)
	}
	if !strings.Contains(f.Texts()[2], "[Enable Vim]") {
		t.Errorf("toolbar %q does not offer to enable Vim", f.Texts()[2])
	}
}

func TestRender_Scroll(t *testing.T) {
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprint("line", i))
	}
	content := strings.Join(lines, "\n")
	v := &view{width: 40, height: 10}

	// Put the dot on the 16th line.
	dot := strings.Index(content, "line16")
	f := v.render(session.Snapshot{}, bufferOf(content, dot))
	if got, want := f.Texts()[3][:9], " 11 line1"; got != want {
		t.Errorf("first editor row %q, want %q", got, want)
	}
	if f.Cursor != (Pos{8, 4}) {
		t.Errorf("cursor at %v, want {8 4}", f.Cursor)
	}

	// Moving up keeps the scroll position while the dot is visible, and
	// scrolls when it is not.
	f = v.render(session.Snapshot{}, bufferOf(content, strings.Index(content, "line12")))
	if got, want := f.Texts()[3][:9], " 11 line1"; got != want {
		t.Errorf("first editor row %q, want %q", got, want)
	}
	f = v.render(session.Snapshot{}, bufferOf(content, strings.Index(content, "line3\n")))
	if got, want := f.Texts()[3][:9], "  3 line3"; got != want {
		t.Errorf("first editor row %q, want %q", got, want)
	}
}

func TestRender_CursorColumn(t *testing.T) {
	v := &view{width: 40, height: 10}
	content := "\tx你好y"
	f := v.render(session.Snapshot{}, bufferOf(content, strings.Index(content, "y")))
	// Gutter (4) + tab (4) + x (1) + two wide characters (4).
	if f.Cursor != (Pos{3, 13}) {
		t.Errorf("cursor at %v, want {3 13}", f.Cursor)
	}
}

func TestRender_Output(t *testing.T) {
	v := &view{width: 40, height: 10, theme: DefaultTheme()}
	var output []string
	for i := 1; i <= 10; i++ {
		output = append(output, fmt.Sprint("out", i))
	}
	output = append(output, "Error: boom")
	f := v.render(session.Snapshot{Output: output, Raised: true}, bufferOf("", 0))

	texts := f.Texts()
	// The body has 6 rows; the last 6 lines of the output are shown.
	if got := outputText(texts[3]); got != "out6" {
		t.Errorf("first output row %q, want out6", got)
	}
	if got := outputText(texts[8]); got != "Error: boom" {
		t.Errorf("last output row %q, want the error", got)
	}
	last := f.Lines[8]
	if style := last[len(last)-2].Style; style != v.theme.Error {
		t.Errorf("error row has style %v, want %v", style, v.theme.Error)
	}
	if style := f.Lines[7][2].Style; style != v.theme.Output {
		t.Errorf("output row has style %v, want %v", style, v.theme.Output)
	}
}

func TestRender_OutputWraps(t *testing.T) {
	v := &view{width: 40, height: 10}
	// The output pane is 19 columns wide; with the leading space, 18 columns
	// are left for text.
	f := v.render(session.Snapshot{Output: []string{strings.Repeat("a", 20), "x\ny"}}, bufferOf("", 0))
	texts := f.Texts()
	for i, want := range []string{strings.Repeat("a", 18), "aa", "x", "y"} {
		if got := outputText(texts[3+i]); got != want {
			t.Errorf("output row %d: got %q, want %q", i, got, want)
		}
	}
}

func TestRender_Running(t *testing.T) {
	v := &view{width: 40, height: 10}
	f := v.render(session.Snapshot{Output: []string{"old"}, Running: true}, bufferOf("", 0))
	if got := outputText(f.Texts()[3]); got != RunningText {
		t.Errorf("output row %q, want %q", got, RunningText)
	}
}

func TestRender_TooSmall(t *testing.T) {
	v := &view{width: 10, height: 3}
	f := v.render(session.Snapshot{}, bufferOf("", 0))
	if got := f.Texts(); len(got) != 1 || got[0] != "Terminal t" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeFrame(t *testing.T) {
	f := Frame{
		Lines: []Line{
			{{ui.Style{Bold: true, Foreground: ui.Red}, "ab"}},
			{{ui.Style{}, "cd"}},
		},
		Cursor: Pos{1, 2},
	}
	want := hideCursor + cursorHome +
		"\033[1;31mab" + resetStyle + clearToLineEnd + "\r\n" +
		"cd" + clearToLineEnd +
		clearToScreenEnd + "\033[2;3H" + showCursor
	if got := string(encodeFrame(f)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Returns the text of the output pane in a body row.
func outputText(row string) string {
	_, output, _ := strings.Cut(row, "│")
	return strings.TrimSpace(output)
}

func TestTheme_Set(t *testing.T) {
	theme := DefaultTheme()
	if err := theme.Set("error", "bold bright-red"); err != nil {
		t.Fatal(err)
	}
	if want := (ui.Style{Bold: true, Foreground: ui.BrightRed}); theme.Error != want {
		t.Errorf("error style %v, want %v", theme.Error, want)
	}
	if err := theme.Set("sidebar", "bold"); err == nil || err.Error() != "unknown part of the screen: sidebar" {
		t.Errorf("got error %v", err)
	}
	if err := theme.Set("hint", "sparkly"); err == nil || !strings.Contains(err.Error(), "style for hint") {
		t.Errorf("got error %v", err)
	}
}
