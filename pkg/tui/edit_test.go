package tui

import (
	"strings"
	"testing"

	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/ui"
)

func TestEditKey(t *testing.T) {
	for _, test := range []struct {
		name   string
		before string
		keys   []ui.Key
		after  string
	}{
		{"insert", "a|b", []ui.Key{ui.K('x'), ui.K('й')}, "axй|b"},
		{"Enter", "a|b", []ui.Key{ui.K(ui.Enter)}, "a\n|b"},
		{"Tab", "|a", []ui.Key{ui.K(ui.Tab)}, "    |a"},
		{"Backspace", "ab|c", []ui.Key{ui.K(ui.Backspace)}, "a|c"},
		{"Backspace at start", "|abc", []ui.Key{ui.K(ui.Backspace)}, "|abc"},
		{"Delete", "a|bc", []ui.Key{ui.K(ui.Delete)}, "a|c"},
		{"Left crosses lines", "a\n|b", []ui.Key{ui.K(ui.Left)}, "a|\nb"},
		{"Right", "|ab", []ui.Key{ui.K(ui.Right)}, "a|b"},
		{"Up", "abc\nde|f", []ui.Key{ui.K(ui.Up)}, "ab|c\ndef"},
		{"Down", "a|bc\ndef", []ui.Key{ui.K(ui.Down)}, "abc\nd|ef"},
		{"Home", "a\nbc|d", []ui.Key{ui.K(ui.Home)}, "a\n|bcd"},
		{"End", "a|bc\nd", []ui.Key{ui.K(ui.End)}, "abc|\nd"},
		{"Shift-Up", "abc\nde|f", []ui.Key{ui.K(ui.Up, ui.Shift)}, "ab|c\ndef"},
		{"Ctrl keys ignored", "a|b", []ui.Key{ui.K('X', ui.Ctrl), ui.K('x', ui.Alt)}, "a|b"},
		{"function keys ignored", "a|b", []ui.Key{ui.K(ui.F9), ui.K(ui.PageUp)}, "a|b"},
	} {
		t.Run(test.name, func(t *testing.T) {
			dot := strings.IndexByte(test.before, '|')
			doc := document.New(document.Spec{})
			doc.Mutate(func(b *document.Buffer) {
				*b = document.Buffer{Content: test.before[:dot] + test.before[dot+1:], Dot: dot}
			})
			for _, k := range test.keys {
				editKey(doc, k)
			}
			b := doc.Buffer()
			if got := b.Content[:b.Dot] + "|" + b.Content[b.Dot:]; got != test.after {
				t.Errorf("got %q, want %q", got, test.after)
			}
		})
	}
}

func TestEditKey_ReportsIgnoredKeys(t *testing.T) {
	doc := document.New(document.Spec{})
	if editKey(doc, ui.K(ui.F9)) {
		t.Errorf("F9 reported as handled")
	}
	if editKey(doc, ui.K(ui.Tab, ui.Shift)) {
		t.Errorf("Shift-Tab reported as handled")
	}
	if !editKey(doc, ui.K('a')) {
		t.Errorf("a reported as not handled")
	}
}
