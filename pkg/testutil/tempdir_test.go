package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

type cleanuper struct{ fns []func() }

func (c *cleanuper) Cleanup(fn func()) { c.fns = append(c.fns, fn) }

func (c *cleanuper) runCleanups() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}

func TestTempDir_CleanupRemovesDirRecursively(t *testing.T) {
	c := &cleanuper{}
	dir := TempDir(c)

	err := os.WriteFile(filepath.Join(dir, "a"), []byte("test"), 0600)
	if err != nil {
		t.Fatal(err)
	}

	c.runCleanups()
	if _, err := os.Stat(dir); err == nil {
		t.Errorf("Dir %q still exists after cleanup", dir)
	}
}

func TestInTempDir(t *testing.T) {
	original, _ := os.Getwd()

	c := &cleanuper{}
	dir := InTempDir(c)
	if wd, _ := os.Getwd(); wd != dir {
		t.Errorf("pwd is now %q, want %q", wd, dir)
	}

	c.runCleanups()
	if wd, _ := os.Getwd(); wd != original {
		t.Errorf("pwd is now %q, want %q", wd, original)
	}
}

func TestSetenv(t *testing.T) {
	const name = "CODEPAD_TESTUTIL_VAR"
	os.Unsetenv(name)

	c := &cleanuper{}
	if v := Setenv(c, name, "value"); v != "value" {
		t.Errorf("Setenv returned %q", v)
	}
	if v := os.Getenv(name); v != "value" {
		t.Errorf("$%s = %q after Setenv", name, v)
	}
	c.runCleanups()
	if _, ok := os.LookupEnv(name); ok {
		t.Errorf("$%s still set after cleanup", name)
	}
}
