package tui

import "sync"

// Buffer size of the input channel. The value is chosen for no particular
// reason.
const inputChSize = 128

// A generic main loop manager.
type loop struct {
	inputCh  chan event
	handleCb handleCb

	redrawCb redrawCb

	redrawCh    chan struct{}
	redrawFull  bool
	afterRender []func()
	redrawMutex sync.Mutex

	returnCh chan error
	doneCh   chan struct{}
}

// A placeholder type for events.
type event any

// Callback for redrawing the UI to the terminal.
type redrawCb func(flag redrawFlag)

func dummyRedrawCb(redrawFlag) {}

// Flag to redrawCb.
type redrawFlag uint

// Bit flags for redrawFlag.
const (
	// fullRedraw signals a "full redraw". This is set on the first redrawCb
	// call or when Redraw has been called with full = true.
	fullRedraw redrawFlag = 1 << iota
	// finalRedraw signals that this is the final redraw in the event loop.
	finalRedraw
)

// Callback for handling a terminal event.
type handleCb func(event)

func dummyHandleCb(event) {}

// newLoop creates a new loop instance.
func newLoop() *loop {
	return &loop{
		inputCh:  make(chan event, inputChSize),
		handleCb: dummyHandleCb,
		redrawCb: dummyRedrawCb,

		redrawCh:   make(chan struct{}, 1),
		redrawFull: true,

		returnCh: make(chan error, 1),
		doneCh:   make(chan struct{}),
	}
}

// HandleCb sets the handle callback. It must be called before Run.
func (lp *loop) HandleCb(cb handleCb) {
	lp.handleCb = cb
}

// RedrawCb sets the redraw callback. It must be called before Run.
func (lp *loop) RedrawCb(cb redrawCb) {
	lp.redrawCb = cb
}

// Redraw requests a redraw. If full is true, a full redraw is requested. It
// never blocks.
func (lp *loop) Redraw(full bool) {
	lp.redrawMutex.Lock()
	defer lp.redrawMutex.Unlock()
	if full {
		lp.redrawFull = true
	}
	lp.requestRedraw()
}

// AfterRender arranges for f to be called on the loop goroutine after the
// next redraw. It never blocks.
func (lp *loop) AfterRender(f func()) {
	lp.redrawMutex.Lock()
	defer lp.redrawMutex.Unlock()
	lp.afterRender = append(lp.afterRender, f)
	lp.requestRedraw()
}

// Must be called with redrawMutex held.
func (lp *loop) requestRedraw() {
	select {
	case lp.redrawCh <- struct{}{}:
	default:
	}
}

// Input provides an input event. It may block if the internal event buffer is
// full, until Run returns.
func (lp *loop) Input(ev event) {
	select {
	case lp.inputCh <- ev:
	case <-lp.doneCh:
	}
}

// Return requests the main loop to return. It never blocks. If Return has been
// called before during the current loop iteration, it has no effect.
func (lp *loop) Return(err error) {
	select {
	case lp.returnCh <- err:
	default:
	}
}

// Run runs the event loop, until the Return method is called. It is generic
// and delegates all concrete work to callbacks. Callbacks, including those
// passed to AfterRender, are all called on the goroutine calling Run and never
// in parallel.
func (lp *loop) Run() error {
	defer close(lp.doneCh)
	for {
		flag, after := lp.extractRedraw()
		lp.redrawCb(flag)
		for _, f := range after {
			f()
		}
		select {
		case event := <-lp.inputCh:
			// Consume all events in the channel to minimize redraws.
		consumeAllEvents:
			for {
				lp.handleCb(event)
				select {
				case err := <-lp.returnCh:
					lp.redrawCb(finalRedraw)
					return err
				default:
				}
				select {
				case event = <-lp.inputCh:
					// Continue the loop of consuming all events.
				default:
					break consumeAllEvents
				}
			}
		case err := <-lp.returnCh:
			lp.redrawCb(finalRedraw)
			return err
		case <-lp.redrawCh:
		}
	}
}

func (lp *loop) extractRedraw() (redrawFlag, []func()) {
	lp.redrawMutex.Lock()
	defer lp.redrawMutex.Unlock()

	// The redraw about to happen serves any pending request.
	select {
	case <-lp.redrawCh:
	default:
	}
	var flag redrawFlag
	if lp.redrawFull {
		flag |= fullRedraw
	}
	lp.redrawFull = false
	after := lp.afterRender
	lp.afterRender = nil
	return flag, after
}
