//go:build linux || solaris || darwin || dragonfly || freebsd || netbsd || openbsd

package sys

import (
	"os"

	"src.codepad.dev/pkg/sys/eunix"
)

func makeRaw(file *os.File) (func() error, error) {
	fd := int(file.Fd())
	saved, err := eunix.TermiosForFd(fd)
	if err != nil {
		return nil, err
	}
	term := saved.Copy()
	term.SetICanon(false)
	term.SetEcho(false)
	term.SetIXON(false)
	term.SetVMin(1)
	term.SetVTime(0)
	if err := term.ApplyToFd(fd); err != nil {
		return nil, err
	}
	return func() error { return saved.ApplyToFd(fd) }, nil
}
