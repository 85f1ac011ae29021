package tui

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/must"
	"src.codepad.dev/pkg/prog"
	"src.codepad.dev/pkg/session"
	"src.codepad.dev/pkg/shortcut"
	"src.codepad.dev/pkg/testutil"
	"src.codepad.dev/pkg/vim"
)

// An io.Writer that can be read while being written to.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	app   *app
	out   *syncBuffer
	keys  *io.PipeWriter
	runCh chan error
}

func setup(t *testing.T) *fixture {
	t.Helper()
	r, w := io.Pipe()
	out := &syncBuffer{}
	f := &fixture{
		app: newApp(appSpec{
			Session: session.Spec{Bindings: shortcut.TerminalBindings()},
			Out:     out,
			Size:    func() (int, int) { return 24, 80 },
		}),
		out:   out,
		keys:  w,
		runCh: make(chan error, 1),
	}
	go func() { f.runCh <- f.app.run(r) }()
	t.Cleanup(func() {
		w.Close()
		select {
		case <-f.runCh:
		case <-time.After(testutil.Scaled(3 * time.Second)):
			t.Error("app did not exit")
		}
	})
	return f
}

func (f *fixture) send(t *testing.T, keys string) {
	t.Helper()
	_, err := io.WriteString(f.keys, keys)
	require.NoError(t, err)
	// Give the reader time to tell a lone Esc from an escape sequence.
	time.Sleep(2 * keySeqTimeout)
}

func (f *fixture) waitState(t *testing.T, pred func(session.Snapshot) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return pred(f.app.sess.Snapshot()) },
		testutil.Scaled(3*time.Second), 5*time.Millisecond)
}

func (f *fixture) waitOutput(t *testing.T, s string) {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(f.out.String(), s) },
		testutil.Scaled(3*time.Second), 5*time.Millisecond,
		"screen never showed %q", s)
}

func TestApp_DrawsInitialScreen(t *testing.T) {
	f := setup(t)
	f.waitOutput(t, Title)
	f.waitOutput(t, document.Placeholder)
	f.waitOutput(t, "F5 run  F2 vim  F3 lang  Ctrl-Q quit")
	assert.True(t, f.app.sess.Snapshot().Mounted)
}

func TestApp_TypesIntoDocument(t *testing.T) {
	f := setup(t)
	f.send(t, "ab\r\t")
	f.waitState(t, func(s session.Snapshot) bool {
		return s.Text == "ab\n    "+document.Placeholder
	})
	f.waitOutput(t, "  2     console.log")
}

func TestApp_RunsWithF5(t *testing.T) {
	f := setup(t)
	f.send(t, "\x1b[15~")
	f.waitState(t, func(s session.Snapshot) bool {
		return len(s.Output) == 1 && s.Output[0] == "Hello, World!"
	})
	f.waitOutput(t, " Hello, World!")
}

func TestApp_TogglesVim(t *testing.T) {
	f := setup(t)
	f.send(t, "\x1bOQ") // F2
	f.waitState(t, func(s session.Snapshot) bool { return s.Attached })
	f.waitOutput(t, vim.NormalStatus)
	f.waitOutput(t, "[Disable Vim]")

	// x deletes a character in normal mode instead of being inserted.
	f.send(t, "x")
	f.waitState(t, func(s session.Snapshot) bool {
		return s.Text == document.Placeholder[1:]
	})

	// Insert mode falls through to the default editing.
	f.send(t, "iz\x1b")
	f.waitState(t, func(s session.Snapshot) bool {
		return s.Text == "z"+document.Placeholder[1:] && s.Status == vim.NormalStatus
	})

	f.send(t, "\x1bOQ")
	f.waitState(t, func(s session.Snapshot) bool { return !s.Attached })
}

func TestApp_NextLanguage(t *testing.T) {
	f := setup(t)
	f.send(t, "\x1bOR") // F3
	f.waitOutput(t, "[TypeScript ▾]")
}

func TestApp_Quit(t *testing.T) {
	f := setup(t)
	f.send(t, "\x11")
	select {
	case err := <-f.runCh:
		assert.NoError(t, err)
		// Let the cleanup see the app has exited.
		f.runCh <- err
	case <-time.After(testutil.Scaled(3 * time.Second)):
		t.Fatal("app did not quit on Ctrl-Q")
	}
}

func TestApp_ExitsAtEndOfInput(t *testing.T) {
	f := setup(t)
	f.keys.Close()
	select {
	case err := <-f.runCh:
		assert.NoError(t, err)
		f.runCh <- err
	case <-time.After(testutil.Scaled(3 * time.Second)):
		t.Fatal("app did not exit at the end of input")
	}
}

func TestHints(t *testing.T) {
	assert.Equal(t, "Cmd-Enter run  Cmd-M vim", hints(shortcut.DefaultBindings()))
	assert.Equal(t, "F5 run  F2 vim  F3 lang  Ctrl-Q quit", hints(shortcut.TerminalBindings()))
}

func TestProgram_NotSuitableWithoutTerminal(t *testing.T) {
	r, w := must.Pipe()
	defer r.Close()
	defer w.Close()

	p := &Program{}
	err := p.Run([3]*os.File{r, w, w}, nil)
	assert.Equal(t, prog.ErrNotSuitable, err)
}

func TestProgram_NotSuitableWithArgs(t *testing.T) {
	p := &Program{}
	err := p.Run([3]*os.File{os.Stdin, os.Stdout, os.Stderr}, []string{"a.js"})
	assert.Equal(t, prog.ErrNotSuitable, err)
}
