// Package sys provide system utilities with the same API across OSes.
//
// The subpackage eunix provides OS-specific utilities for terminals.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

// SIGWINCH is the window size change signal.
const SIGWINCH = sigWINCH

// WinSize queries the size of the terminal referenced by the given file.
func WinSize(file *os.File) (row, col int) { return winSize(file) }

// IsATTY determines whether the given file is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// MakeRaw puts the terminal referenced by file into the mode the editor needs:
// input is delivered byte by byte without echo or flow control, while Enter
// is still translated to a newline and signals are still generated. It
// returns a function that restores the original mode.
func MakeRaw(file *os.File) (restore func() error, err error) {
	return makeRaw(file)
}
