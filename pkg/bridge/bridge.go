// Package bridge implements the execution bridge of the playground: it runs
// the document as code and captures what the code logs.
//
// Each run gets its own Sink, so no process-wide logging handler is ever
// swapped out and concurrent runs never see each other's output.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/logutil"
)

var logger = logutil.GetLogger("bridge")

// UnsupportedMessage is the only output of a run in a language that cannot be
// executed.
const UnsupportedMessage = "Execution for this language is not supported yet."

// ErrorPrefix starts the output line reporting an exception.
const ErrorPrefix = "Error: "

// Sink receives the lines logged by the code being run.
type Sink interface {
	Log(line string)
}

// Evaluator is the capability to evaluate source text as the body of a
// function. Exceptions raised by the code are returned as errors, preferably
// of type *Exception; they must not be Go panics.
type Evaluator interface {
	Eval(ctx context.Context, code string, sink Sink) error
}

// Exception is an error raised by evaluated code.
type Exception struct {
	// The message of the exception, as the code would see it.
	Message string
}

func (e *Exception) Error() string { return e.Message }

// Result is the outcome of a run.
type Result struct {
	// Lines collected in call order. The last one starts with ErrorPrefix if
	// the code raised.
	Lines []string
	// Whether the code raised an exception.
	Raised bool
}

// Output returns the lines joined with newlines, as shown in the output pane.
func (r Result) Output() string { return strings.Join(r.Lines, "\n") }

// Collector is a Sink that keeps the lines in memory.
type Collector struct {
	lines []string
}

// Log appends a line.
func (c *Collector) Log(line string) { c.lines = append(c.lines, line) }

// Lines returns the lines logged so far.
func (c *Collector) Lines() []string { return c.lines }

// Config configures a Bridge.
type Config struct {
	// The evaluator used for executable languages. If nil, Disabled is used.
	Evaluator Evaluator
	// If positive, runs are interrupted after this long.
	Timeout time.Duration
}

// Bridge runs documents. It is safe for concurrent use as long as the
// evaluator is.
type Bridge struct {
	eval    Evaluator
	timeout time.Duration
}

// New creates a new Bridge.
func New(cfg Config) *Bridge {
	if cfg.Evaluator == nil {
		cfg.Evaluator = Disabled
	}
	return &Bridge{cfg.Evaluator, cfg.Timeout}
}

// Run runs code in the given language, and returns the collected output. It
// never returns an error: failures of the code are part of the output.
func (b *Bridge) Run(ctx context.Context, l lang.Language, code string) Result {
	var c Collector
	if !l.Executable() {
		c.Log(UnsupportedMessage)
		return Result{Lines: c.Lines()}
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	err := safeEval(ctx, b.eval, code, &c)
	logger.Debug().Stringer("language", l).Dur("took", time.Since(start)).
		Int("lines", len(c.Lines())).Err(err).Msg("run finished")
	if err != nil {
		c.Log(ErrorPrefix + message(err))
		return Result{Lines: c.Lines(), Raised: true}
	}
	return Result{Lines: c.Lines()}
}

// Calls ev.Eval, turning a panic into an *Exception.
func safeEval(ctx context.Context, ev Evaluator, code string, sink Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("evaluator panicked")
			err = &Exception{fmt.Sprint(r)}
		}
	}()
	return ev.Eval(ctx, code, sink)
}

func message(err error) string {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc.Message
	}
	return err.Error()
}

// Disabled is an Evaluator that refuses to run anything.
var Disabled Evaluator = disabled{}

type disabled struct{}

func (disabled) Eval(context.Context, string, Sink) error {
	return &Exception{"evaluation is disabled"}
}
