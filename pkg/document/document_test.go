package document

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_Placeholder(t *testing.T) {
	d := New(Spec{})
	if got := d.Text(); got != "console.log('Hello, World!')" {
		t.Errorf("Text() = %q, want the placeholder", got)
	}
	d = New(Spec{Placeholder: "1 + 1"})
	if got := d.Text(); got != "1 + 1" {
		t.Errorf("Text() = %q, want %q", got, "1 + 1")
	}
}

func TestSetText_CallsOnChange(t *testing.T) {
	var changes []string
	d := New(Spec{OnChange: func(s string) { changes = append(changes, s) }})

	d.SetText("a")
	d.SetText("a")
	d.SetText("ab")

	if diff := cmp.Diff([]string{"a", "ab"}, changes); diff != "" {
		t.Errorf("OnChange calls (-want +got):\n%s", diff)
	}
}

func TestVersioned(t *testing.T) {
	d := New(Spec{Placeholder: "a"})
	if text, rev := d.Versioned(); text != "a" || rev != 0 {
		t.Errorf("Versioned() = %q, %d, want \"a\", 0", text, rev)
	}
	if rev := d.SetText("b"); rev != 1 {
		t.Errorf("SetText returned revision %d, want 1", rev)
	}
	// Edits that change nothing keep the revision.
	if rev := d.SetText("b"); rev != 1 {
		t.Errorf("SetText of the same text returned revision %d, want 1", rev)
	}
	if rev := d.Mutate(func(b *Buffer) { b.Dot = 1 }); rev != 1 {
		t.Errorf("moving the dot returned revision %d, want 1", rev)
	}
	if text, rev := d.Versioned(); text != "b" || rev != 1 {
		t.Errorf("Versioned() = %q, %d, want \"b\", 1", text, rev)
	}
}

func TestSetText_ClampsDot(t *testing.T) {
	d := New(Spec{Placeholder: "long content"})
	d.Mutate(func(b *Buffer) { b.Dot = len(b.Content) })
	d.SetText("x")
	if got := d.Buffer(); got != (Buffer{Content: "x", Dot: 1}) {
		t.Errorf("Buffer() = %v", got)
	}
}

func TestMutate_NoChangeNoCallback(t *testing.T) {
	called := false
	d := New(Spec{OnChange: func(string) { called = true }})
	d.Mutate(func(b *Buffer) { b.Dot = 3 })
	if called {
		t.Errorf("OnChange called when only the dot moved")
	}
	if got := d.Buffer().Dot; got != 3 {
		t.Errorf("Dot = %d, want 3", got)
	}
}

func TestMount_OnlyOnce(t *testing.T) {
	mounts := 0
	d := New(Spec{OnMount: func() { mounts++ }})
	if d.Mounted() {
		t.Errorf("Mounted() = true before Mount")
	}
	if !d.Mount() {
		t.Errorf("first Mount() = false")
	}
	if d.Mount() {
		t.Errorf("second Mount() = true")
	}
	if mounts != 1 || !d.Mounted() {
		t.Errorf("mounts = %d, Mounted() = %v", mounts, d.Mounted())
	}
}

func TestConcurrentEdits(t *testing.T) {
	d := New(Spec{Placeholder: "-"})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Mutate(func(b *Buffer) { b.InsertAtDot("x") })
			_ = d.Text()
		}()
	}
	wg.Wait()
	if got := len(d.Text()); got != 51 {
		t.Errorf("len(Text()) = %d, want 51", got)
	}
}
