package shortcut

import (
	"sync"

	"src.codepad.dev/pkg/ui"
)

// Listener handles a key and reports whether it consumed it.
type Listener func(ui.Key) bool

// Source is where keys of an editor surface originate. Listeners are called in
// the order they were added, until one consumes the key.
type Source struct {
	mu        sync.Mutex
	nextID    int
	listeners []listenerEntry
}

type listenerEntry struct {
	id int
	f  Listener
}

// AddKeyListener adds a listener and returns a function that removes it.
// Calling the returned function more than once has no further effect.
func (s *Source) AddKeyListener(f Listener) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id, f})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch offers k to the listeners. It reports whether any of them consumed
// it, in which case the default action of the key should not happen.
func (s *Source) Dispatch(k ui.Key) bool {
	s.mu.Lock()
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, l := range listeners {
		if l.f(k) {
			return true
		}
	}
	return false
}

// NumListeners returns the number of installed listeners.
func (s *Source) NumListeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
