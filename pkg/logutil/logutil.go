// Package logutil provides logging utilities.
//
// Loggers returned by GetLogger write to a process-wide output that is
// discarded until SetOutput or SetOutputFile is called, so packages can create
// their loggers at initialization time.
package logutil

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	out = &switchWriter{w: io.Discard}
	// The file opened by SetOutputFile, closed when the output is switched
	// again.
	outFile *os.File
	outMu   sync.Mutex
)

// GetLogger gets a logger tagged with the given component name.
func GetLogger(component string) zerolog.Logger {
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}

// SetOutput redirects the output of all loggers obtained with GetLogger to the
// new io.Writer. If the old output was a file opened by SetOutputFile, it is
// closed.
func SetOutput(newout io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	closeOutFile()
	out.set(newout)
}

// SetConsoleOutput is like SetOutput, but formats the entries for humans
// instead of as JSON lines.
func SetConsoleOutput(newout io.Writer) {
	SetOutput(zerolog.ConsoleWriter{Out: newout, TimeFormat: time.RFC3339})
}

// SetOutputFile redirects the output of all loggers obtained with GetLogger to
// the named file. If the old output was a file opened by SetOutputFile, it is
// closed. The new file is truncated. SetOutputFile("") is equivalent to
// SetOutput(io.Discard).
func SetOutputFile(fname string) error {
	if fname == "" {
		SetOutput(io.Discard)
		return nil
	}
	file, err := os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	outMu.Lock()
	defer outMu.Unlock()
	closeOutFile()
	outFile = file
	out.set(file)
	return nil
}

// SetLevel sets the minimum level of entries written by all loggers. Valid
// names are those accepted by zerolog.ParseLevel, case-insensitive; the empty
// string means "info".
func SetLevel(name string) error {
	if name == "" {
		name = "info"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func closeOutFile() {
	if outFile != nil {
		outFile.Close()
		outFile = nil
	}
}

type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (sw *switchWriter) set(w io.Writer) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.w = w
}

func (sw *switchWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}
