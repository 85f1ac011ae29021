// Package configtest isolates tests from the configuration of the user
// running them.
package configtest

import (
	"path/filepath"

	"src.codepad.dev/pkg/config"
	"src.codepad.dev/pkg/testutil"
)

var envNames = []string{
	"CONFIG", "LISTEN", "PLACEHOLDER", "LANGUAGE", "RUN_TIMEOUT",
	"MAX_CALL_STACK", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FILE",
}

// Setup unsets the environment variables read by config.Load, points the
// user configuration directory to an empty directory, and changes into a
// temporary directory, which is returned. Everything is restored when the
// test finishes.
func Setup(c testutil.Cleanuper) string {
	testutil.Unsetenv(c, "PORT")
	for _, name := range envNames {
		testutil.Unsetenv(c, config.EnvPrefix+name)
	}
	dir := testutil.InTempDir(c)
	testutil.Setenv(c, "XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	testutil.Setenv(c, "HOME", dir)
	return dir
}
