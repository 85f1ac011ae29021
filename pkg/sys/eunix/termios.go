//go:build linux || solaris || darwin || dragonfly || freebsd || netbsd || openbsd

// Package eunix provides terminal utilities for Unix systems.
package eunix

import "golang.org/x/sys/unix"

// Termios represents terminal attributes.
type Termios unix.Termios

// TermiosForFd returns a pointer to a Termios structure if the file
// descriptor is open on a terminal device.
func TermiosForFd(fd int) (*Termios, error) {
	term, err := unix.IoctlGetTermios(fd, getAttrIOCTL)
	return (*Termios)(term), err
}

// ApplyToFd applies term to the given file descriptor.
func (term *Termios) ApplyToFd(fd int) error {
	return unix.IoctlSetTermios(fd, setAttrNowIOCTL, (*unix.Termios)(term))
}

// Copy returns a copy of term.
func (term *Termios) Copy() *Termios {
	v := *term
	return &v
}

// SetVTime sets the timeout in deciseconds for noncanonical read.
func (term *Termios) SetVTime(v uint8) {
	term.Cc[unix.VTIME] = v
}

// SetVMin sets the minimal number of characters for noncanonical read.
func (term *Termios) SetVMin(v uint8) {
	term.Cc[unix.VMIN] = v
}

// SetICanon sets the canonical flag.
func (term *Termios) SetICanon(v bool) {
	setFlag(&term.Lflag, unix.ICANON, v)
}

// SetEcho sets the echo flag.
func (term *Termios) SetEcho(v bool) {
	setFlag(&term.Lflag, unix.ECHO, v)
}

// SetIXON sets the flag that enables start/stop output control. It must be
// off for Ctrl-Q and Ctrl-S to be delivered as keys.
func (term *Termios) SetIXON(v bool) {
	setFlag(&term.Iflag, unix.IXON, v)
}

func setFlag[T ~uint32 | ~uint64](flag *T, mask uint64, v bool) {
	if v {
		*flag |= T(mask)
	} else {
		*flag &^= T(mask)
	}
}
