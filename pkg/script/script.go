// Package script implements the non-interactive subprogram of codepad, which
// runs a file, a piece of code given on the command line, or stdin once and
// prints the output.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"src.codepad.dev/pkg/bridge"
	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/logutil"
	"src.codepad.dev/pkg/prog"
	"src.codepad.dev/pkg/sys"
)

var logger = logutil.GetLogger("script")

// SGR sequences around the error line when stdout is a terminal.
const (
	errorStart = "\033[31m"
	errorEnd   = "\033[m"
)

var langByExt = map[string]lang.Language{
	".js":   lang.JavaScript,
	".mjs":  lang.JavaScript,
	".cjs":  lang.JavaScript,
	".ts":   lang.TypeScript,
	".mts":  lang.TypeScript,
	".py":   lang.Python,
	".java": lang.Java,
}

// Program is the script subprogram. It runs when a file or -c is given, or
// when stdin is not a terminal.
type Program struct {
	code   bool
	json   *bool
	config *prog.ConfigFlags
}

// RegisterFlags registers -c, -json and the configuration flags.
func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.code, "c", false,
		"Take the first argument as code to run instead of a file")
	p.json = fs.JSON()
	p.config = fs.Config()
}

// Output is what -json prints.
type Output struct {
	Language lang.Language `json:"language"`
	Lines    []string      `json:"lines"`
	Raised   bool          `json:"raised"`
}

// Run runs the code once. It exits with 1 if the code raised an exception.
func (p *Program) Run(fds [3]*os.File, args []string) error {
	if !p.code && len(args) == 0 && sys.IsATTY(fds[0].Fd()) {
		return prog.ErrNotSuitable
	}
	if len(args) > 1 {
		return prog.BadUsage("at most one file or -c argument may be given")
	}
	if p.code && len(args) == 0 {
		return prog.BadUsage("-c requires an argument")
	}

	code, name, err := p.source(fds[0], args)
	if err != nil {
		return err
	}

	o := p.config.Overrides()
	if !p.config.IsSet("lang") {
		if l, ok := langByExt[strings.ToLower(filepath.Ext(name))]; ok {
			s := l.String()
			o.Language = &s
		}
	}
	if !p.config.IsSet("timeout") {
		var noTimeout time.Duration
		o.RunTimeout = &noTimeout
	}
	cfg, err := p.config.Load(o)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	b := bridge.New(bridge.Config{
		Evaluator: bridge.NewGoja(bridge.GojaConfig{MaxCallStack: cfg.MaxCallStack}),
		Timeout:   cfg.RunTimeout,
	})
	logger.Debug().Str("source", name).Stringer("language", cfg.Lang()).Msg("running")
	res := b.Run(ctx, cfg.Lang(), code)

	if *p.json {
		out := Output{Language: cfg.Lang(), Lines: res.Lines, Raised: res.Raised}
		if out.Lines == nil {
			out.Lines = []string{}
		}
		if err := json.NewEncoder(fds[1]).Encode(out); err != nil {
			return err
		}
	} else {
		printLines(fds[1], res, sys.IsATTY(fds[1].Fd()))
	}
	if res.Raised {
		return prog.Exit(1)
	}
	return nil
}

// Returns the code to run and a name for it. The name of a file is its path;
// the extension of the name determines the default language.
func (p *Program) source(stdin io.Reader, args []string) (code, name string, err error) {
	switch {
	case p.code:
		return args[0], "code", nil
	case len(args) == 0 || args[0] == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), "stdin", nil
	default:
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		return string(b), args[0], nil
	}
}

func printLines(w io.Writer, res bridge.Result, color bool) {
	for i, line := range res.Lines {
		if color && res.Raised && i == len(res.Lines)-1 {
			line = errorStart + line + errorEnd
		}
		fmt.Fprintln(w, line)
	}
}
