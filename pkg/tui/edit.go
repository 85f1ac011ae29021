package tui

import (
	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/ui"
)

// Inserted for Tab.
const indent = "    "

// editKey applies the default editing behavior for a key that no shortcut
// and no overlay consumed. It reports whether the key did anything.
func editKey(doc *document.Document, k ui.Key) bool {
	if k.Mod&^ui.Shift != 0 {
		return false
	}
	var f func(*document.Buffer)
	switch k.Rune {
	case ui.Enter:
		f = func(b *document.Buffer) { b.InsertAtDot("\n") }
	case ui.Tab:
		if k.Mod != 0 {
			return false
		}
		f = func(b *document.Buffer) { b.InsertAtDot(indent) }
	case ui.Backspace:
		f = func(b *document.Buffer) { b.DeleteLeft() }
	case ui.Delete:
		f = func(b *document.Buffer) { b.DeleteRight() }
	case ui.Left:
		f = func(b *document.Buffer) { b.MoveLeft(false) }
	case ui.Right:
		f = func(b *document.Buffer) { b.MoveRight(false) }
	case ui.Up:
		f = (*document.Buffer).MoveUp
	case ui.Down:
		f = (*document.Buffer).MoveDown
	case ui.Home:
		f = func(b *document.Buffer) { b.Dot = b.LineStart() }
	case ui.End:
		f = func(b *document.Buffer) { b.Dot = b.LineEnd() }
	default:
		if k.Rune < 0x20 || k.Rune == 0x7f {
			// Function keys and unbound control characters.
			return false
		}
		text := string(k.Rune)
		f = func(b *document.Buffer) { b.InsertAtDot(text) }
	}
	doc.Mutate(f)
	return true
}
