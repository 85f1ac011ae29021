//go:build !windows

package progtest

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"

	"src.codepad.dev/pkg/prog"
	"src.codepad.dev/pkg/testutil"
)

// Interactive is a test fixture for subprograms that need a terminal. The
// program reads from and writes to the terminal side of a pty, and the test
// drives the other side.
type Interactive struct {
	// The terminal side of the pty, used as stdin and stdout of the program.
	TTY *os.File

	pty    *os.File
	screen screen
	exit   chan int
	stderr func() string
}

// SetupInteractive opens a pty of the given size. The test is skipped if the
// system has no ptys. The pty is closed when the test finishes.
func SetupInteractive(t *testing.T, rows, cols int) *Interactive {
	t.Helper()
	ptm, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty: %v", err)
	}
	t.Cleanup(func() {
		ptm.Close()
		tty.Close()
	})
	err = pty.Setsize(ptm, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		t.Fatalf("set pty size: %v", err)
	}
	i := &Interactive{TTY: tty, pty: ptm, exit: make(chan int, 1)}
	// Stops with an error when the pty is closed.
	go io.Copy(&i.screen, ptm)
	return i
}

// Run runs p in the background with the given arguments. Stderr is captured
// and returned by Wait.
func (i *Interactive) Run(p prog.Program, args ...string) {
	w2, get2 := capturedOutput()
	i.stderr = get2
	go func() {
		i.exit <- prog.Run([3]*os.File{i.TTY, i.TTY, w2}, append([]string{"codepad"}, args...), p)
	}()
}

// Send writes s to the terminal as if it were typed.
func (i *Interactive) Send(t *testing.T, s string) {
	t.Helper()
	if _, err := i.pty.WriteString(s); err != nil {
		t.Fatalf("write to pty: %v", err)
	}
}

// Screen returns everything the program has written to the terminal.
func (i *Interactive) Screen() string { return i.screen.String() }

// WaitScreen waits until the program has written s to the terminal.
func (i *Interactive) WaitScreen(t *testing.T, s string) {
	t.Helper()
	deadline := time.Now().Add(testutil.Scaled(3 * time.Second))
	for !strings.Contains(i.Screen(), s) {
		if time.Now().After(deadline) {
			t.Fatalf("terminal never showed %q, got %q", s, i.Screen())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Wait waits for the program to exit, and returns its exit status and what it
// wrote to stderr.
func (i *Interactive) Wait(t *testing.T) (exit int, stderr string) {
	t.Helper()
	select {
	case exit = <-i.exit:
		return exit, i.stderr()
	case <-time.After(testutil.Scaled(3 * time.Second)):
		t.Fatalf("program did not exit, terminal shows %q", i.Screen())
		return 0, ""
	}
}

type screen struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *screen) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
