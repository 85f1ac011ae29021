//go:build !(linux || solaris || darwin || dragonfly || freebsd || netbsd || openbsd)

package sys

import (
	"errors"
	"os"
)

var errRawModeUnsupported = errors.New("raw terminal mode is not supported on this platform")

func makeRaw(*os.File) (func() error, error) {
	return nil, errRawModeUnsupported
}
