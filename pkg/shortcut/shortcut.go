// Package shortcut maps key chords to editor actions.
package shortcut

import (
	"fmt"
	"sort"
	"sync"

	"src.codepad.dev/pkg/ui"
)

// Action is something a chord can trigger.
type Action int

// Possible values of Action.
const (
	Run Action = iota + 1
	ToggleOverlay
	NextLanguage
	Quit
)

var actionNames = map[Action]string{
	Run:           "run",
	ToggleOverlay: "toggle-vim",
	NextLanguage:  "next-language",
	Quit:          "quit",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction parses the name of an action.
func ParseAction(name string) (Action, error) {
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action: %q", name)
}

// Bindings maps actions to the chords that trigger them.
type Bindings map[Action][]ui.Key

// DefaultBindings returns the bindings of the browser editor: the primary
// modifier (Ctrl or Cmd) with Enter runs the code, and with M toggles the Vim
// overlay.
func DefaultBindings() Bindings {
	return Bindings{
		Run:           {ui.K(ui.Enter, ui.Ctrl), ui.K(ui.Enter, ui.Cmd)},
		ToggleOverlay: {ui.K('M', ui.Ctrl), ui.K('M', ui.Cmd)},
	}
}

// TerminalBindings returns DefaultBindings plus keys that terminals can
// actually deliver. Most terminals send Ctrl-Enter and Ctrl-M as a plain
// Enter.
func TerminalBindings() Bindings {
	b := DefaultBindings()
	b[Run] = append(b[Run], ui.K(ui.F5))
	b[ToggleOverlay] = append(b[ToggleOverlay], ui.K(ui.F2))
	b[NextLanguage] = []ui.Key{ui.K(ui.F3)}
	b[Quit] = []ui.Key{ui.K('Q', ui.Ctrl)}
	return b
}

// Set replaces the chords of an action with the parsed keys.
func (b Bindings) Set(a Action, keys []string) error {
	parsed := make([]ui.Key, len(keys))
	for i, s := range keys {
		k, err := ui.ParseKey(s)
		if err != nil {
			return fmt.Errorf("binding for %v: %w", a, err)
		}
		parsed[i] = k
	}
	b[a] = parsed
	return nil
}

// Lookup finds the action bound to a key.
//
// Shift and Alt held in addition to a bound chord do not prevent a match, so
// Ctrl-Shift-M matches Ctrl-M. Neither does holding both Ctrl and Cmd when
// the chord names one of them. Other extra modifiers do.
func (b Bindings) Lookup(k ui.Key) (Action, bool) {
	for _, a := range b.actions() {
		for _, bound := range b[a] {
			if matches(bound, k) {
				return a, true
			}
		}
	}
	return 0, false
}

// Names returns the string form of the bindings, keyed by action name.
func (b Bindings) Names() map[string][]string {
	names := make(map[string][]string, len(b))
	for a, keys := range b {
		ss := make([]string, len(keys))
		for i, k := range keys {
			ss[i] = k.String()
		}
		names[a.String()] = ss
	}
	return names
}

func (b Bindings) actions() []Action {
	as := make([]Action, 0, len(b))
	for a := range b {
		as = append(as, a)
	}
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	return as
}

const ignorableMods = ui.Shift | ui.Alt

func matches(bound, k ui.Key) bool {
	if bound.Rune != k.Rune || k.Mod&bound.Mod != bound.Mod {
		return false
	}
	extra := k.Mod &^ bound.Mod &^ ignorableMods
	if bound.Mod&ui.Primary != 0 {
		extra &^= ui.Primary
	}
	return extra == 0
}

// Router dispatches chords to the handlers of their actions.
type Router struct {
	mu       sync.RWMutex
	bindings Bindings
	handlers map[Action]func()
}

// NewRouter creates a Router with the given bindings.
func NewRouter(b Bindings) *Router {
	return &Router{bindings: b, handlers: make(map[Action]func())}
}

// On sets the handler of an action.
func (r *Router) On(a Action, f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[a] = f
}

// Bindings returns the bindings of the router.
func (r *Router) Bindings() Bindings {
	return r.bindings
}

// Handle runs the handler of the action bound to k. It reports whether the
// key was consumed; keys bound to an action without a handler are not.
func (r *Router) Handle(k ui.Key) bool {
	a, ok := r.bindings.Lookup(k)
	if !ok {
		return false
	}
	r.mu.RLock()
	f := r.handlers[a]
	r.mu.RUnlock()
	if f == nil {
		return false
	}
	f()
	return true
}

// Install adds the router as a listener of src, and returns a function that
// removes it.
func (r *Router) Install(src *Source) (remove func()) {
	return src.AddKeyListener(r.Handle)
}
