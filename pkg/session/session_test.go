package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.codepad.dev/pkg/bridge"
	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/overlay"
	. "src.codepad.dev/pkg/session"
	"src.codepad.dev/pkg/shortcut"
	"src.codepad.dev/pkg/testutil"
	"src.codepad.dev/pkg/ui"
	"src.codepad.dev/pkg/vim"
)

type queue struct{ fs []func() }

func (q *queue) schedule(f func()) { q.fs = append(q.fs, f) }

func (q *queue) flush() {
	fs := q.fs
	q.fs = nil
	for _, f := range fs {
		f()
	}
}

func setup(t *testing.T, spec Spec) (*Session, *queue) {
	q := &queue{}
	spec.AfterRender = q.schedule
	s := New(spec)
	t.Cleanup(s.Close)
	return s, q
}

func TestSession_Defaults(t *testing.T) {
	s, _ := setup(t, Spec{})
	snap := s.Snapshot()

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, s.ID(), snap.ID)
	assert.Equal(t, document.Placeholder, snap.Text)
	assert.Equal(t, lang.JavaScript, snap.Language)
	assert.Equal(t, overlay.Disabled, snap.Overlay)
	assert.Nil(t, snap.Output)
	assert.False(t, snap.Running)
	assert.False(t, snap.Mounted)
}

func TestSession_RunPlaceholder(t *testing.T) {
	s, _ := setup(t, Spec{ID: "test"})
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", res.Output())
	assert.Equal(t, []string{"Hello, World!"}, s.Snapshot().Output)
}

func TestSession_RunUsesLatestText(t *testing.T) {
	s, _ := setup(t, Spec{})
	s.SetText("console.log(1); console.log(2)")
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.Lines)
}

func TestSession_Revision(t *testing.T) {
	s, _ := setup(t, Spec{})
	assert.Equal(t, uint64(0), s.Snapshot().Revision)
	assert.Equal(t, uint64(1), s.SetText("a"))
	assert.Equal(t, uint64(2), s.SetText("b"))
	snap := s.Snapshot()
	assert.Equal(t, "b", snap.Text)
	assert.Equal(t, uint64(2), snap.Revision)
}

func TestSession_OutputReplacedByLaterRun(t *testing.T) {
	s, _ := setup(t, Spec{})
	s.SetText("throw new Error('x')")
	s.Run(context.Background())
	assert.True(t, s.Snapshot().Raised)

	s.SetText("console.log('ok')")
	s.Run(context.Background())
	snap := s.Snapshot()
	assert.Equal(t, []string{"ok"}, snap.Output)
	assert.False(t, snap.Raised)
}

func TestSession_UnsupportedLanguage(t *testing.T) {
	s, _ := setup(t, Spec{Language: lang.Python})
	s.SetText("print('hi')")
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{bridge.UnsupportedMessage}, res.Lines)
	assert.Equal(t, "print('hi')", s.Text())
}

func TestSession_SetLanguageKeepsState(t *testing.T) {
	var updates []Snapshot
	s, _ := setup(t, Spec{OnUpdate: func(snap Snapshot) { updates = append(updates, snap) }})
	s.Run(context.Background())
	updates = nil

	s.SetLanguage(lang.TypeScript)
	s.SetLanguage(lang.TypeScript)
	require.Len(t, updates, 1)
	assert.Equal(t, lang.TypeScript, updates[0].Language)
	assert.Equal(t, document.Placeholder, updates[0].Text)
	assert.Equal(t, []string{"Hello, World!"}, updates[0].Output)
}

func TestSession_RunPublishesRunning(t *testing.T) {
	var running []bool
	s, _ := setup(t, Spec{OnUpdate: func(snap Snapshot) { running = append(running, snap.Running) }})
	s.Run(context.Background())
	assert.Equal(t, []bool{true, false}, running)
}

type blockingEvaluator struct {
	started chan struct{}
	release chan struct{}
}

func (e blockingEvaluator) Eval(ctx context.Context, code string, sink bridge.Sink) error {
	close(e.started)
	<-e.release
	sink.Log("done")
	return nil
}

func TestSession_RunIsSingleFlight(t *testing.T) {
	ev := blockingEvaluator{make(chan struct{}), make(chan struct{})}
	s, _ := setup(t, Spec{Bridge: bridge.New(bridge.Config{Evaluator: ev})})

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		errCh <- err
	}()
	<-ev.started

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, s.Snapshot().Running)

	close(ev.release)
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"done"}, s.Snapshot().Output)
}

func TestSession_RunShortcut(t *testing.T) {
	done := make(chan Snapshot, 10)
	s, _ := setup(t, Spec{OnUpdate: func(snap Snapshot) {
		if !snap.Running && snap.Output != nil {
			done <- snap
		}
	}})

	assert.True(t, s.HandleKey(ui.K(ui.Enter, ui.Cmd)))
	select {
	case snap := <-done:
		assert.Equal(t, []string{"Hello, World!"}, snap.Output)
	case <-time.After(testutil.Scaled(5 * time.Second)):
		t.Fatal("run did not finish")
	}
}

func TestSession_RunShortcutReportsBusy(t *testing.T) {
	ev := blockingEvaluator{make(chan struct{}), make(chan struct{})}
	errs := make(chan error, 1)
	s, _ := setup(t, Spec{
		Bridge:  bridge.New(bridge.Config{Evaluator: ev}),
		OnError: func(err error) { errs <- err },
	})

	s.HandleKey(ui.K(ui.Enter, ui.Ctrl))
	<-ev.started
	s.HandleKey(ui.K(ui.Enter, ui.Ctrl))
	select {
	case err := <-errs:
		assert.True(t, errors.Is(err, ErrBusy))
	case <-time.After(testutil.Scaled(5 * time.Second)):
		t.Fatal("no error reported")
	}
	close(ev.release)
}

func TestSession_RunInBackgroundWithThrowingMessage(t *testing.T) {
	done := make(chan Snapshot, 10)
	s, _ := setup(t, Spec{OnUpdate: func(snap Snapshot) {
		if !snap.Running && snap.Output != nil {
			done <- snap
		}
	}})
	s.SetText(`throw {get message() { throw new Error('inner') }}`)

	s.RunInBackground()
	select {
	case snap := <-done:
		assert.Equal(t, []string{"Error: [object Object]"}, snap.Output)
		assert.True(t, snap.Raised)
	case <-time.After(testutil.Scaled(5 * time.Second)):
		t.Fatal("run did not finish")
	}
}

func TestSession_RunInBackgroundRecovers(t *testing.T) {
	errs := make(chan error, 1)
	panicked := false
	s, _ := setup(t, Spec{
		OnUpdate: func(snap Snapshot) {
			if snap.Running && !panicked {
				panicked = true
				panic("observer bug")
			}
		},
		OnError: func(err error) { errs <- err },
	})

	s.RunInBackground()
	select {
	case err := <-errs:
		assert.EqualError(t, err, "run failed: observer bug")
	case <-time.After(testutil.Scaled(5 * time.Second)):
		t.Fatal("no error reported")
	}
	assert.False(t, s.Snapshot().Running)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello, World!"}, res.Lines)
}

func TestSession_OverlayShortcut(t *testing.T) {
	s, q := setup(t, Spec{})
	s.SetText("abc")
	s.Mount()
	assert.True(t, s.Snapshot().StatusVisible)

	assert.True(t, s.HandleKey(ui.K('M', ui.Ctrl)))
	snap := s.Snapshot()
	assert.Equal(t, overlay.Enabled, snap.Overlay)
	assert.False(t, snap.Attached)

	q.flush()
	snap = s.Snapshot()
	assert.True(t, snap.Attached)
	assert.Equal(t, vim.NormalStatus, snap.Status)

	// Keys now go to the Vim layer.
	assert.True(t, s.HandleKey(ui.K('x')))
	assert.Equal(t, "bc", s.Text())

	assert.True(t, s.HandleKey(ui.K('M', ui.Cmd, ui.Shift)))
	snap = s.Snapshot()
	assert.Equal(t, overlay.Disabled, snap.Overlay)
	assert.False(t, snap.Attached)
	assert.True(t, snap.StatusVisible)

	assert.False(t, s.HandleKey(ui.K('x')))
	assert.Equal(t, "bc", s.Text())
}

func TestSession_ToggleTwice(t *testing.T) {
	s, q := setup(t, Spec{})
	s.Mount()
	s.ToggleOverlay()
	q.flush()
	s.ToggleOverlay()
	q.flush()

	snap := s.Snapshot()
	assert.Equal(t, overlay.Disabled, snap.Overlay)
	assert.False(t, snap.Attached)
	assert.True(t, snap.StatusVisible)
}

func TestSession_MountOnce(t *testing.T) {
	var updates int
	s, _ := setup(t, Spec{OnUpdate: func(Snapshot) { updates++ }})
	s.Mount()
	s.Mount()
	assert.Equal(t, 1, updates)
	assert.True(t, s.Snapshot().Mounted)
}

func TestSession_Close(t *testing.T) {
	s := New(Spec{})
	s.Close()
	s.Close()
	assert.False(t, s.HandleKey(ui.K(ui.Enter, ui.Ctrl)))
}

func TestSession_TerminalBindings(t *testing.T) {
	s, _ := setup(t, Spec{Bindings: shortcut.TerminalBindings()})
	assert.True(t, s.HandleKey(ui.K(ui.F3)))
	assert.Equal(t, lang.TypeScript, s.Language())

	// Quit has no handler until the frontend sets one.
	assert.False(t, s.HandleKey(ui.K('Q', ui.Ctrl)))
	quit := false
	s.Router().On(shortcut.Quit, func() { quit = true })
	assert.True(t, s.HandleKey(ui.K('Q', ui.Ctrl)))
	assert.True(t, quit)
}
