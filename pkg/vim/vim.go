// Package vim implements a subset of Vim's modal editing on top of a
// document.Document, as a keybinding overlay for the terminal editor.
//
// Supported in normal mode:
//
//   - Motions: h j k l w b 0 ^ $ gg G, arrow keys, Home and End
//   - Edits: x dd yy p P D
//   - Entering insert mode: i a I A o O
//   - Counts before motions and edits, like 3j or 2dd
//
// In insert mode, only Esc is handled; other keys are left to the editor.
package vim

import (
	"strconv"
	"sync"

	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/logutil"
	"src.codepad.dev/pkg/overlay"
	"src.codepad.dev/pkg/ui"
)

var logger = logutil.GetLogger("vim")

// Mode is the editing mode.
type Mode int

// Possible values of Mode.
const (
	Normal Mode = iota
	Insert
)

func (m Mode) String() string {
	if m == Insert {
		return "insert"
	}
	return "normal"
}

// Status texts of the modes.
const (
	NormalStatus = "-- NORMAL --"
	InsertStatus = "-- INSERT --"
)

// Emulator attaches an Editor to a document. It implements overlay.Emulator.
type Emulator struct{}

// Attach implements overlay.Emulator. The editor starts in normal mode.
func (Emulator) Attach(doc *document.Document, status overlay.StatusBar) (overlay.Handle, error) {
	return NewEditor(doc, status), nil
}

// Editor is a Vim emulation layer attached to a document.
type Editor struct {
	mu     sync.Mutex
	doc    *document.Document
	status overlay.StatusBar

	mode Mode
	// Count typed so far, 0 if none.
	count int
	// First key of a two-key command (g, d or y), 0 if none.
	pending rune
	// The unnamed register.
	register string
	linewise bool

	disposed bool
}

// NewEditor creates an Editor in normal mode, and shows the mode on status.
func NewEditor(doc *document.Document, status overlay.StatusBar) *Editor {
	e := &Editor{doc: doc, status: status}
	e.doc.Mutate(clampNormal)
	e.updateStatus()
	return e
}

// Mode returns the current mode.
func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Dispose detaches the editor. Subsequent keys are not handled, and the status
// is no longer updated.
func (e *Editor) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
}

// HandleKey handles a key, and reports whether it was consumed. It implements
// overlay.KeyHandler.
func (e *Editor) HandleKey(k ui.Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return false
	}
	if k.Mod&^ui.Shift != 0 {
		// Leave chords to the shortcut router and the editor.
		return false
	}
	if e.mode == Insert {
		if k.Rune != ui.Esc {
			return false
		}
		e.mode = Normal
		e.doc.Mutate(func(b *document.Buffer) {
			b.MoveLeft(true)
			clampNormal(b)
		})
		e.updateStatus()
		return true
	}
	e.handleNormal(k.Rune)
	e.updateStatus()
	return true
}

func (e *Editor) handleNormal(r rune) {
	if e.pending != 0 {
		pending, n := e.pending, e.takeCount()
		e.pending = 0
		switch {
		case pending == 'g' && r == 'g':
			e.mutate(func(b *document.Buffer) { gotoLine(b, max(n, 1)-1) })
		case pending == 'd' && r == 'd':
			e.deleteLines(max(n, 1))
		case pending == 'y' && r == 'y':
			e.yankLines(max(n, 1))
		default:
			logger.Debug().Str("keys", string([]rune{pending, r})).Msg("unsupported command")
		}
		return
	}

	switch {
	case '1' <= r && r <= '9', r == '0' && e.count > 0:
		e.count = e.count*10 + int(r-'0')
		return
	case r == 'g' || r == 'd' || r == 'y':
		e.pending = r
		return
	}

	n := e.takeCount()
	repeat := max(n, 1)
	switch r {
	case ui.Esc:
		// Cancels the count.
	case 'h', ui.Left, ui.Backspace:
		e.mutateN(repeat, func(b *document.Buffer) { b.MoveLeft(true) })
	case 'l', ui.Right, ' ':
		e.mutateN(repeat, func(b *document.Buffer) { moveRightNormal(b) })
	case 'j', ui.Down:
		e.mutateN(repeat, (*document.Buffer).MoveDown)
	case 'k', ui.Up:
		e.mutateN(repeat, (*document.Buffer).MoveUp)
	case ui.Enter:
		e.mutateN(repeat, func(b *document.Buffer) {
			b.MoveDown()
			b.Dot = firstNonBlank(b)
		})
	case 'w':
		e.mutateN(repeat, wordForward)
	case 'b':
		e.mutateN(repeat, wordBackward)
	case '0', ui.Home:
		e.mutate(func(b *document.Buffer) { b.Dot = b.LineStart() })
	case '^':
		e.mutate(func(b *document.Buffer) { b.Dot = firstNonBlank(b) })
	case '$', ui.End:
		e.mutate(func(b *document.Buffer) {
			for i := 1; i < repeat; i++ {
				b.MoveDown()
			}
			b.Dot = b.LineEnd()
		})
	case 'G':
		e.mutate(func(b *document.Buffer) {
			if n == 0 {
				gotoLine(b, len(b.Lines())-1)
			} else {
				gotoLine(b, n-1)
			}
		})
	case 'x', ui.Delete:
		e.deleteChars(repeat)
	case 'D':
		e.mutate(func(b *document.Buffer) {
			if deleted := b.Delete(b.Dot, b.LineEnd()); deleted != "" {
				e.register, e.linewise = deleted, false
			}
		})
	case 'p':
		e.put(true, repeat)
	case 'P':
		e.put(false, repeat)
	case 'i':
		e.mode = Insert
	case 'a':
		e.mode = Insert
		e.doc.Mutate(func(b *document.Buffer) { b.MoveRight(true) })
	case 'I':
		e.mode = Insert
		e.doc.Mutate(func(b *document.Buffer) { b.Dot = firstNonBlank(b) })
	case 'A':
		e.mode = Insert
		e.doc.Mutate(func(b *document.Buffer) { b.Dot = b.LineEnd() })
	case 'o':
		e.mode = Insert
		e.doc.Mutate(func(b *document.Buffer) {
			b.Dot = b.LineEnd()
			b.InsertAtDot("\n")
		})
	case 'O':
		e.mode = Insert
		e.doc.Mutate(func(b *document.Buffer) {
			b.Dot = b.LineStart()
			b.InsertAtDot("\n")
			b.MoveLeft(false)
		})
	default:
		logger.Debug().Str("key", string(r)).Msg("unsupported key")
	}
}

func (e *Editor) takeCount() int {
	n := e.count
	e.count = 0
	return n
}

func (e *Editor) mutate(f func(*document.Buffer)) {
	e.doc.Mutate(func(b *document.Buffer) {
		f(b)
		clampNormal(b)
	})
}

func (e *Editor) mutateN(n int, f func(*document.Buffer)) {
	e.mutate(func(b *document.Buffer) {
		for i := 0; i < n; i++ {
			f(b)
		}
	})
}

func (e *Editor) deleteChars(n int) {
	e.mutate(func(b *document.Buffer) {
		end := advance(b.Content, b.Dot, b.LineEnd(), n)
		if deleted := b.Delete(b.Dot, end); deleted != "" {
			e.register, e.linewise = deleted, false
		}
	})
}

func (e *Editor) yankLines(n int) {
	b := e.doc.Buffer()
	from, to := lineRange(&b, n)
	e.register, e.linewise = b.Content[from:to], true
}

func (e *Editor) deleteLines(n int) {
	e.mutate(func(b *document.Buffer) {
		from, to := lineRange(b, n)
		e.register, e.linewise = b.Content[from:to], true
		switch {
		case to < len(b.Content):
			// Remove the following newline along with the lines.
			b.Delete(from, to+1)
		case from > 0:
			// Last lines of the buffer; remove the preceding newline instead.
			b.Delete(from-1, to)
			b.Dot = b.LineStart()
		default:
			b.Delete(from, to)
		}
		b.Dot = firstNonBlank(b)
	})
}

func (e *Editor) put(after bool, n int) {
	if e.register == "" && !e.linewise {
		return
	}
	e.mutate(func(b *document.Buffer) {
		if e.linewise {
			text := repeatJoin(e.register, "\n", n)
			if after {
				b.Dot = b.LineEnd()
				b.InsertAtDot("\n" + text)
				b.Dot -= len(text)
			} else {
				b.Dot = b.LineStart()
				b.InsertAtDot(text + "\n")
				b.Dot -= len(text) + 1
			}
			b.Dot = firstNonBlank(b)
			return
		}
		text := repeatJoin(e.register, "", n)
		if after {
			b.MoveRight(true)
		}
		b.InsertAtDot(text)
		// Vim leaves the cursor on the last inserted character.
		b.MoveLeft(false)
	})
}

func (e *Editor) updateStatus() {
	if e.mode == Insert {
		e.status.SetStatus(InsertStatus)
		return
	}
	keys := ""
	if e.count > 0 {
		keys = strconv.Itoa(e.count)
	}
	if e.pending != 0 {
		keys += string(e.pending)
	}
	if keys == "" {
		e.status.SetStatus(NormalStatus)
	} else {
		e.status.SetStatus(NormalStatus + " " + keys)
	}
}
