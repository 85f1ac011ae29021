// Package session composes the parts of a playground: the document, the
// selected language, the keybinding overlay, the execution bridge and the
// shortcut router. A Session is what a frontend drives.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"src.codepad.dev/pkg/bridge"
	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/logutil"
	"src.codepad.dev/pkg/overlay"
	"src.codepad.dev/pkg/shortcut"
	"src.codepad.dev/pkg/ui"
	"src.codepad.dev/pkg/vim"
)

var logger = logutil.GetLogger("session")

// ErrBusy is returned by Session.Run when a run is already in flight.
var ErrBusy = errors.New("a run is already in progress")

// Spec specifies the configuration of a Session.
type Spec struct {
	// Identifier of the session. If empty, a random UUID is used.
	ID string
	// Initial content of the document. If empty, document.Placeholder is used.
	Placeholder string
	// Initial language. The zero value is lang.JavaScript.
	Language lang.Language
	// Runs the document. If nil, a Bridge with a goja evaluator and no timeout
	// is used.
	Bridge *bridge.Bridge
	// Emulation layer of the overlay. If nil, vim.Emulator is used.
	Emulator overlay.Emulator
	// Passed to overlay.Spec.AfterRender.
	AfterRender func(func())
	// Shortcut bindings. If nil, shortcut.DefaultBindings is used.
	Bindings shortcut.Bindings
	// Called with a new snapshot whenever the state changes.
	OnUpdate func(Snapshot)
	// Called with errors that cannot be returned to a caller, such as
	// failures to attach the overlay or of runs triggered by a shortcut.
	OnError func(error)
}

// Snapshot is a copy of the observable state of a Session.
type Snapshot struct {
	ID   string
	Text string
	// Revision of the document the text was read at.
	Revision uint64
	Language lang.Language
	// Output of the last completed run.
	Output []string
	Raised bool
	// Whether a run is in flight.
	Running bool
	Overlay overlay.State
	// Whether an emulation layer is attached.
	Attached bool
	// Whether the status readout of the overlay is visible, and its text.
	StatusVisible bool
	Status        string
	Mounted       bool
}

// Session is a playground session. It is safe for concurrent use.
type Session struct {
	spec    Spec
	doc     *document.Document
	overlay *overlay.Overlay
	router  *shortcut.Router
	keys    shortcut.Source

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	removeListeners []func()

	mu       sync.Mutex
	language lang.Language
	result   bridge.Result
	running  bool
	status   string
	closed   bool
}

// New creates a new Session, and installs its shortcut router and overlay as
// listeners of its key source.
func New(spec Spec) *Session {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if spec.Bridge == nil {
		spec.Bridge = bridge.New(bridge.Config{Evaluator: bridge.NewGoja(bridge.GojaConfig{})})
	}
	if spec.Emulator == nil {
		spec.Emulator = vim.Emulator{}
	}
	if spec.Bindings == nil {
		spec.Bindings = shortcut.DefaultBindings()
	}
	if spec.OnUpdate == nil {
		spec.OnUpdate = func(Snapshot) {}
	}
	if spec.OnError == nil {
		spec.OnError = func(error) {}
	}

	s := &Session{spec: spec, language: spec.Language}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.doc = document.New(document.Spec{
		Placeholder: spec.Placeholder,
		OnChange:    func(string) { s.publish() },
	})
	s.overlay = overlay.New(overlay.Spec{
		Emulator:    spec.Emulator,
		AfterRender: spec.AfterRender,
		OnChange:    func(overlay.State) { s.publish() },
		OnError:     spec.OnError,
	})
	s.router = shortcut.NewRouter(spec.Bindings)
	s.router.On(shortcut.Run, s.RunInBackground)
	s.router.On(shortcut.ToggleOverlay, func() { s.ToggleOverlay() })
	s.router.On(shortcut.NextLanguage, func() { s.SetLanguage(s.Language().Next()) })

	s.removeListeners = []func(){
		s.router.Install(&s.keys),
		s.keys.AddKeyListener(s.overlay.HandleKey),
	}
	return s
}

// ID returns the identifier of the session.
func (s *Session) ID() string { return s.spec.ID }

// Document returns the document of the session.
func (s *Session) Document() *document.Document { return s.doc }

// Router returns the shortcut router, so that frontends can handle actions of
// their own, such as shortcut.Quit.
func (s *Session) Router() *shortcut.Router { return s.router }

// Keys returns the key source of the session. Frontends may add listeners
// to it; they are consulted after the shortcut router and the overlay.
func (s *Session) Keys() *shortcut.Source { return &s.keys }

// Text returns the content of the document.
func (s *Session) Text() string { return s.doc.Text() }

// SetText replaces the content of the document, and returns the revision of
// the document after the edit.
func (s *Session) SetText(text string) uint64 { return s.doc.SetText(text) }

// Language returns the selected language.
func (s *Session) Language() lang.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage selects a language. The document and the output are left
// unchanged.
func (s *Session) SetLanguage(l lang.Language) {
	s.mu.Lock()
	changed := s.language != l
	s.language = l
	s.mu.Unlock()
	if changed {
		logger.Debug().Str("session", s.spec.ID).Stringer("language", l).Msg("language selected")
		s.publish()
	}
}

// ToggleOverlay enables or disables the keybinding overlay, and returns the
// new state.
func (s *Session) ToggleOverlay() overlay.State {
	return s.overlay.Toggle()
}

// SetOverlay enables or disables the keybinding overlay.
func (s *Session) SetOverlay(enabled bool) {
	s.overlay.SetEnabled(enabled)
}

// Mount is called when the editor surface is ready. It mounts the document
// and gives the overlay the document and the status readout.
func (s *Session) Mount() {
	if !s.doc.Mount() {
		return
	}
	s.overlay.Mount(s.doc, statusBar{s})
	s.publish()
}

// Run runs the document in the selected language, and publishes the output.
// It returns ErrBusy if a run is in flight.
func (s *Session) Run(ctx context.Context) (bridge.Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return bridge.Result{}, ErrBusy
	}
	s.running = true
	l := s.language
	s.mu.Unlock()
	s.publish()

	res := s.spec.Bridge.Run(ctx, l, s.doc.Text())

	s.mu.Lock()
	s.running = false
	s.result = res
	s.mu.Unlock()
	s.publish()
	return res, nil
}

// RunInBackground starts a run in a new goroutine. Errors are reported to
// Spec.OnError. The run is cancelled by Close.
func (s *Session) RunInBackground() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		if err := s.runRecovered(); err != nil {
			s.spec.OnError(err)
		}
	}()
}

// Runs with the context of the session. A panic is returned as an error, and
// the session is left ready for the next run.
func (s *Session) runRecovered() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("session", s.spec.ID).Interface("panic", r).Msg("run panicked")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.publish()
			err = fmt.Errorf("run failed: %v", r)
		}
	}()
	_, err = s.Run(s.ctx)
	return err
}

// HandleKey offers a key to the shortcut router, then to the overlay, then
// to other listeners of Keys. It reports whether the key was consumed; if
// not, the frontend should apply its default editing behavior.
func (s *Session) HandleKey(k ui.Key) bool {
	return s.keys.Dispatch(k)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, rev := s.doc.Versioned()
	return Snapshot{
		ID:            s.spec.ID,
		Text:          text,
		Revision:      rev,
		Language:      s.language,
		Output:        s.result.Lines,
		Raised:        s.result.Raised,
		Running:       s.running,
		Overlay:       s.overlay.State(),
		Attached:      s.overlay.Attached(),
		StatusVisible: s.overlay.StatusVisible(),
		Status:        s.status,
		Mounted:       s.doc.Mounted(),
	}
}

// Close removes the key listeners, detaches the overlay, and cancels and
// waits for background runs.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, remove := range s.removeListeners {
		remove()
	}
	s.overlay.Close()
	s.cancel()
	s.wg.Wait()
}

func (s *Session) publish() {
	s.spec.OnUpdate(s.Snapshot())
}

// statusBar is the status readout of the overlay.
type statusBar struct{ s *Session }

func (b statusBar) SetStatus(text string) {
	b.s.mu.Lock()
	b.s.status = text
	b.s.mu.Unlock()
	b.s.publish()
}
