// Package document implements the editor surface of the playground: the
// single source buffer that the user edits, with change and mount
// notifications.
package document

import "sync"

// Placeholder is the content of a new document when Spec.Placeholder is
// empty.
const Placeholder = "console.log('Hello, World!')"

// Spec specifies the configuration and initial content of a Document.
type Spec struct {
	// Initial content. If empty, Placeholder is used.
	Placeholder string
	// Called with the new content after every edit that changes it.
	OnChange func(text string)
	// Called once, when the surface hosting the document is ready. The host
	// takes focus and performs a layout pass at this point.
	OnMount func()
}

// Document is a mutable in-memory source buffer. It is safe for concurrent
// use; callbacks are invoked without holding any lock.
type Document struct {
	mu      sync.RWMutex
	spec    Spec
	buf     Buffer
	// Incremented on every change of the content.
	rev     uint64
	mounted bool
}

// New creates a new Document from the given spec.
func New(spec Spec) *Document {
	if spec.Placeholder == "" {
		spec.Placeholder = Placeholder
	}
	if spec.OnChange == nil {
		spec.OnChange = func(string) {}
	}
	if spec.OnMount == nil {
		spec.OnMount = func() {}
	}
	return &Document{spec: spec, buf: Buffer{Content: spec.Placeholder}}
}

// Text returns the current content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf.Content
}

// Versioned returns the current content and its revision. The revision
// starts at 0 and is incremented by every edit that changes the content.
func (d *Document) Versioned() (string, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf.Content, d.rev
}

// Buffer returns a copy of the buffer, including the position of the dot.
func (d *Document) Buffer() Buffer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf
}

// SetText replaces the content, and returns the revision of the document
// after the edit. The dot is kept where it was, clamped to the new content.
func (d *Document) SetText(text string) uint64 {
	return d.Mutate(func(b *Buffer) {
		b.Content = text
		b.Dot = b.clampDot(b.Dot)
	})
}

// Mutate calls f with the buffer while holding the lock. If f changed the
// content, OnChange is called afterwards. It returns the revision of the
// document after the edit.
func (d *Document) Mutate(f func(*Buffer)) uint64 {
	d.mu.Lock()
	old := d.buf.Content
	f(&d.buf)
	d.buf.Dot = d.buf.clampDot(d.buf.Dot)
	changed, text := d.buf.Content != old, d.buf.Content
	if changed {
		d.rev++
	}
	rev := d.rev
	d.mu.Unlock()

	if changed {
		d.spec.OnChange(text)
	}
	return rev
}

// Mount marks the document as mounted and calls OnMount. Only the first call
// has an effect; it returns whether this call did the mounting.
func (d *Document) Mount() bool {
	d.mu.Lock()
	if d.mounted {
		d.mu.Unlock()
		return false
	}
	d.mounted = true
	d.mu.Unlock()

	d.spec.OnMount()
	return true
}

// Mounted reports whether Mount has been called.
func (d *Document) Mounted() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mounted
}
