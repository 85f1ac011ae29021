package testutil

import (
	"os"
	"path/filepath"

	"src.codepad.dev/pkg/must"
)

// TempDir creates a temporary directory for testing that will be removed
// after the test finishes. The returned path has symlinks resolved, so that
// it compares equal to paths reported by os.Getwd.
func TempDir(c Cleanuper) string {
	dir := must.OK1(os.MkdirTemp("", "codepadtest."))
	dir = must.OK1(filepath.EvalSymlinks(dir))
	c.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// InTempDir is like TempDir, but also changes into the directory for the
// duration of the test. It returns the directory.
func InTempDir(c Cleanuper) string {
	dir := TempDir(c)
	Chdir(c, dir)
	return dir
}

// Chdir changes into a directory, and restores the original working directory
// when the test finishes.
func Chdir(c Cleanuper, dir string) {
	oldWd := must.OK1(os.Getwd())
	must.Chdir(dir)
	c.Cleanup(func() { must.Chdir(oldWd) })
}
