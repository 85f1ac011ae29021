// Package overlay implements the optional keybinding overlay of the editor: a
// two-state machine that attaches a modal-editing emulation layer to the
// document and detaches it again.
package overlay

import (
	"sync"

	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/logutil"
	"src.codepad.dev/pkg/ui"
)

var logger = logutil.GetLogger("overlay")

// State is the state of an Overlay.
type State int

// Possible values of State.
const (
	Disabled State = iota
	Enabled
)

func (s State) String() string {
	if s == Enabled {
		return "enabled"
	}
	return "disabled"
}

// StatusBar is the readout element the emulation layer reports its mode to.
type StatusBar interface {
	SetStatus(text string)
}

// Emulator attaches an emulation layer to a document.
type Emulator interface {
	Attach(doc *document.Document, status StatusBar) (Handle, error)
}

// Handle is an attached emulation layer.
type Handle interface {
	// Dispose detaches the layer. It is called at most once per handle.
	Dispose()
}

// Activator is implemented by handles that have to be told when they have
// become the attached layer, after the change has been published through
// Spec.OnChange. A handle disposed before that point is never activated.
// Activate is called with the overlay locked and must not call back into it.
type Activator interface {
	Activate()
}

// KeyHandler is implemented by handles that consume keys themselves, as
// opposed to emulation layers living in a remote editor widget.
type KeyHandler interface {
	HandleKey(k ui.Key) bool
}

// Spec specifies the collaborators of an Overlay.
type Spec struct {
	Emulator Emulator
	// AfterRender schedules a function to be run after the frontend has
	// rendered its next frame. Attachment is always deferred through it, so
	// the status readout is on screen before the layer binds to it. If nil,
	// the function is run in a new goroutine.
	AfterRender func(func())
	// Called after every state transition.
	OnChange func(State)
	// Called when attaching fails.
	OnError func(error)
}

// Overlay is the keybinding overlay state machine. It is safe for concurrent
// use; collaborators are called without holding any lock.
type Overlay struct {
	mu   sync.Mutex
	spec Spec

	state  State
	handle Handle
	// Incremented on every transition, so that a deferred attachment can tell
	// whether it is still wanted.
	gen uint64

	doc           *document.Document
	status        StatusBar
	statusVisible bool
}

// New creates a new Overlay in the Disabled state.
func New(spec Spec) *Overlay {
	if spec.AfterRender == nil {
		spec.AfterRender = func(f func()) { go f() }
	}
	if spec.OnChange == nil {
		spec.OnChange = func(State) {}
	}
	if spec.OnError == nil {
		spec.OnError = func(error) {}
	}
	return &Overlay{spec: spec}
}

// Mount gives the overlay the editor and the status readout. The readout
// becomes visible. If the overlay is already enabled, attachment is scheduled.
func (o *Overlay) Mount(doc *document.Document, status StatusBar) {
	o.mu.Lock()
	o.doc, o.status, o.statusVisible = doc, status, true
	enabled, gen := o.state == Enabled, o.gen
	o.mu.Unlock()

	if enabled {
		o.scheduleAttach(gen)
	}
}

// Toggle switches between Disabled and Enabled, and returns the new state.
func (o *Overlay) Toggle() State {
	o.mu.Lock()
	enabled := o.state == Disabled
	after := o.setEnabledLocked(enabled)
	o.mu.Unlock()
	after()
	if enabled {
		return Enabled
	}
	return Disabled
}

// SetEnabled moves the overlay to the Enabled or Disabled state.
//
// Enabling schedules attachment through Spec.AfterRender. Disabling disposes
// the attached layer immediately; the status readout stays visible but is no
// longer updated.
func (o *Overlay) SetEnabled(enabled bool) {
	o.mu.Lock()
	after := o.setEnabledLocked(enabled)
	o.mu.Unlock()
	after()
}

// Performs the transition, and returns what has to be done once mu is
// released. Must be called with mu held.
func (o *Overlay) setEnabledLocked(enabled bool) func() {
	want := Disabled
	if enabled {
		want = Enabled
	}
	if o.state == want {
		return func() {}
	}
	o.state = want
	o.gen++
	gen, mounted := o.gen, o.doc != nil
	var h Handle
	if !enabled {
		h, o.handle = o.handle, nil
	}

	return func() {
		if h != nil {
			h.Dispose()
		}
		if enabled && mounted {
			o.scheduleAttach(gen)
		}
		logger.Debug().Stringer("state", want).Msg("overlay toggled")
		o.spec.OnChange(want)
	}
}

func (o *Overlay) scheduleAttach(gen uint64) {
	o.spec.AfterRender(func() { o.attach(gen) })
}

func (o *Overlay) attach(gen uint64) {
	o.mu.Lock()
	if o.gen != gen || o.state != Enabled || o.handle != nil {
		// Disabled (and possibly re-enabled) since this was scheduled.
		o.mu.Unlock()
		return
	}
	doc, status := o.doc, o.status
	o.mu.Unlock()

	h, err := o.spec.Emulator.Attach(doc, status)
	if err != nil {
		logger.Error().Err(err).Msg("cannot attach keybinding emulation")
		o.spec.OnError(err)
		return
	}

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		h.Dispose()
		return
	}
	o.handle = h
	o.statusVisible = true
	o.mu.Unlock()
	o.spec.OnChange(Enabled)

	if a, ok := h.(Activator); ok {
		o.mu.Lock()
		if o.handle == h {
			a.Activate()
		}
		o.mu.Unlock()
	}
}

// State returns the current state.
func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Attached reports whether an emulation layer is currently attached.
func (o *Overlay) Attached() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle != nil
}

// StatusVisible reports whether the status readout is visible.
func (o *Overlay) StatusVisible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusVisible
}

// HandleKey passes a key to the attached layer if it consumes keys. It
// reports whether the key was consumed.
func (o *Overlay) HandleKey(k ui.Key) bool {
	o.mu.Lock()
	h := o.handle
	o.mu.Unlock()
	if kh, ok := h.(KeyHandler); ok {
		return kh.HandleKey(k)
	}
	return false
}

// Close disposes the attached layer, if any. Pending attachments are
// cancelled.
func (o *Overlay) Close() {
	o.mu.Lock()
	o.gen++
	h := o.handle
	o.handle = nil
	o.mu.Unlock()
	if h != nil {
		h.Dispose()
	}
}
