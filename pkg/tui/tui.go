// Package tui implements the terminal frontend of codepad: a full-screen
// editor with line numbers, an output pane and optional Vim keybindings.
package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"src.codepad.dev/pkg/bridge"
	"src.codepad.dev/pkg/logutil"
	"src.codepad.dev/pkg/prog"
	"src.codepad.dev/pkg/session"
	"src.codepad.dev/pkg/shortcut"
	"src.codepad.dev/pkg/sys"
	"src.codepad.dev/pkg/ui"
)

var logger = logutil.GetLogger("tui")

// Program is the terminal frontend subprogram. It runs when both stdin and
// stdout are terminals and no file is given.
type Program struct {
	config *prog.ConfigFlags
}

// RegisterFlags registers the configuration flags.
func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	p.config = fs.Config()
}

// Run runs the terminal editor until the quit chord is pressed or stdin is
// closed.
func (p *Program) Run(fds [3]*os.File, args []string) error {
	if len(args) > 0 || !sys.IsATTY(fds[0].Fd()) || !sys.IsATTY(fds[1].Fd()) {
		return prog.ErrNotSuitable
	}
	cfg, err := p.config.Load(p.config.Overrides())
	if err != nil {
		return err
	}
	bindings := shortcut.TerminalBindings()
	if err := cfg.Keys.Apply(bindings); err != nil {
		return err
	}
	theme := DefaultTheme()
	for part, style := range cfg.Styles {
		if err := theme.Set(part, style); err != nil {
			return fmt.Errorf("styles: %w", err)
		}
	}

	restore, err := sys.MakeRaw(fds[0])
	if err != nil {
		return fmt.Errorf("set up terminal: %w", err)
	}
	defer func() {
		if err := restore(); err != nil {
			logger.Error().Err(err).Msg("failed to restore terminal")
		}
	}()
	fmt.Fprint(fds[1], enterAltScreen)
	defer fmt.Fprint(fds[1], leaveAltScreen)

	a := newApp(appSpec{
		Session: session.Spec{
			Placeholder: cfg.Placeholder,
			Language:    cfg.Lang(),
			Bridge: bridge.New(bridge.Config{
				Evaluator: bridge.NewGoja(bridge.GojaConfig{MaxCallStack: cfg.MaxCallStack}),
				Timeout:   cfg.RunTimeout,
			}),
			Bindings: bindings,
		},
		Theme: theme,
		Out:   fds[1],
		Size:  func() (int, int) { return sys.WinSize(fds[1]) },
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sys.SIGWINCH)
	defer signal.Stop(sigCh)
	stopSig := make(chan struct{})
	defer close(stopSig)
	go func() {
		for {
			select {
			case <-sigCh:
				a.lp.Input(resizeEvent{})
			case <-stopSig:
				return
			}
		}
	}()

	return a.run(fds[0])
}

type appSpec struct {
	// Spec of the session. AfterRender, OnUpdate and OnError are replaced.
	Session session.Spec
	Theme   Theme
	Out     io.Writer
	// Returns the size of the terminal.
	Size func() (height, width int)
}

// app is the terminal editor, independent of the actual terminal.
type app struct {
	sess   *session.Session
	lp     *loop
	view   view
	writer *writer
	size   func() (height, width int)
}

type resizeEvent struct{}

func newApp(spec appSpec) *app {
	a := &app{lp: newLoop(), writer: newWriter(spec.Out), size: spec.Size}
	spec.Session.AfterRender = a.lp.AfterRender
	spec.Session.OnUpdate = func(session.Snapshot) { a.lp.Redraw(false) }
	spec.Session.OnError = func(err error) {
		logger.Warn().Err(err).Msg("session error")
	}
	a.sess = session.New(spec.Session)
	a.sess.Router().On(shortcut.Quit, func() { a.lp.Return(nil) })
	a.view.hints = hints(a.sess.Router().Bindings())
	a.view.theme = spec.Theme

	a.lp.HandleCb(a.handle)
	a.lp.RedrawCb(a.redraw)
	return a
}

// Runs the app with keys read from in, until the quit chord or the end of in.
func (a *app) run(in io.Reader) error {
	rd := NewReader(in)
	defer rd.Close()
	defer a.sess.Close()

	a.sess.Mount()
	go func() {
		for {
			k, err := rd.ReadKey()
			if err != nil {
				a.lp.Input(err)
				if !IsReadErrorRecoverable(err) {
					return
				}
				continue
			}
			a.lp.Input(k)
		}
	}()
	return a.lp.Run()
}

func (a *app) handle(ev event) {
	switch ev := ev.(type) {
	case ui.Key:
		if !a.sess.HandleKey(ev) {
			editKey(a.sess.Document(), ev)
		}
	case resizeEvent:
		a.lp.Redraw(true)
	case error:
		switch {
		case errors.Is(ev, io.EOF), errors.Is(ev, ErrStopped):
			a.lp.Return(nil)
		case IsReadErrorRecoverable(ev):
			logger.Debug().Err(ev).Msg("ignoring bad key sequence")
		default:
			a.lp.Return(ev)
		}
	}
}

func (a *app) redraw(flag redrawFlag) {
	a.view.height, a.view.width = a.size()
	f := a.view.render(a.sess.Snapshot(), a.sess.Document().Buffer())
	if err := a.writer.draw(f, flag&fullRedraw != 0); err != nil {
		logger.Error().Err(err).Msg("failed to draw")
	}
}

var hintLabels = []struct {
	action shortcut.Action
	label  string
}{
	{shortcut.Run, "run"},
	{shortcut.ToggleOverlay, "vim"},
	{shortcut.NextLanguage, "lang"},
	{shortcut.Quit, "quit"},
}

// Describes the bindings for the status bar. The last chord of each action is
// shown, since the chords that terminals can deliver come last.
func hints(b shortcut.Bindings) string {
	var parts []string
	for _, h := range hintLabels {
		if keys := b[h.action]; len(keys) > 0 {
			parts = append(parts, keys[len(keys)-1].String()+" "+h.label)
		}
	}
	return strings.Join(parts, "  ")
}
