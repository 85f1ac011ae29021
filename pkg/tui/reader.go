package tui

import (
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"src.codepad.dev/pkg/ui"
)

// ErrStopped is returned by Reader when Close is called during a ReadKey
// call.
var ErrStopped = errors.New("stopped")

var errTimeout = errors.New("timed out")

type seqError struct {
	msg string
	seq string
}

func (err seqError) Error() string {
	return fmt.Sprintf("%s: %q", err.msg, err.seq)
}

// IsReadErrorRecoverable returns whether an error returned by Reader is
// recoverable.
func IsReadErrorRecoverable(err error) bool {
	var seqErr seqError
	return errors.As(err, &seqErr) || err == errTimeout
}

// Timeout for bytes in escape sequences. Modern terminal emulators send escape
// sequences very fast, so 10ms is more than sufficient. SSH connections on a
// slow link might be problematic though.
var keySeqTimeout = 10 * time.Millisecond

// Reader reads terminal escape sequences and decodes them into keys.
type Reader struct {
	bytes chan byte
	// Receives the error that ended the input, after all bytes have been
	// delivered.
	errCh chan error
	stop  chan struct{}
}

// NewReader creates a Reader that reads from r. A goroutine is started to
// read r; it exits when r returns an error.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{
		bytes: make(chan byte, 64),
		errCh: make(chan error, 1),
		stop:  make(chan struct{}),
	}
	go rd.pump(r)
	return rd
}

func (rd *Reader) pump(r io.Reader) {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case rd.bytes <- b:
			case <-rd.stop:
				return
			}
		}
		if err != nil {
			rd.errCh <- err
			return
		}
	}
}

// Close stops the Reader. Outstanding ReadKey calls return ErrStopped.
func (rd *Reader) Close() {
	close(rd.stop)
}

// Reads a byte. A negative timeout means no timeout.
func (rd *Reader) readByte(timeout time.Duration) (byte, error) {
	var timeoutCh <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	// Deliver buffered bytes before the error that follows them.
	select {
	case b := <-rd.bytes:
		return b, nil
	default:
	}
	select {
	case b := <-rd.bytes:
		return b, nil
	case err := <-rd.errCh:
		// Keep the error for subsequent calls.
		rd.errCh <- err
		select {
		case b := <-rd.bytes:
			return b, nil
		default:
		}
		return 0, err
	case <-rd.stop:
		return 0, ErrStopped
	case <-timeoutCh:
		return 0, errTimeout
	}
}

func (rd *Reader) readRune(timeout time.Duration) (rune, error) {
	b, err := rd.readByte(timeout)
	if err != nil {
		return 0, err
	}
	if b < utf8.RuneSelf {
		return rune(b), nil
	}
	var n int
	switch {
	case b&0xe0 == 0xc0:
		n = 2
	case b&0xf0 == 0xe0:
		n = 3
	case b&0xf8 == 0xf0:
		n = 4
	default:
		return utf8.RuneError, nil
	}
	p := []byte{b}
	for len(p) < n {
		b, err := rd.readByte(keySeqTimeout)
		if err != nil {
			return utf8.RuneError, nil
		}
		p = append(p, b)
	}
	r, _ := utf8.DecodeRune(p)
	return r, nil
}

// Used by readRune in ReadKey to signal end of current sequence.
const runeEndOfSeq rune = -1

// ReadKey reads a single key from the terminal.
func (rd *Reader) ReadKey() (k ui.Key, err error) {
	r, err := rd.readRune(-1)
	if err != nil {
		return ui.Key{}, err
	}

	currentSeq := string(r)
	// Attempts to read a rune within a timeout of keySeqTimeout. It returns
	// runeEndOfSeq if there is any error; the caller should terminate the
	// current sequence when it sees that value.
	readRune := func() rune {
		r, e := rd.readRune(keySeqTimeout)
		if e != nil {
			return runeEndOfSeq
		}
		currentSeq += string(r)
		return r
	}
	badSeq := func(msg string) {
		err = seqError{msg, currentSeq}
	}

	switch r {
	case 0x1b: // ^[ Escape
		r2 := readRune()
		// rxvt and derivatives prepend another ESC to a CSI-style or
		// G3-style sequence to signal Alt.
		hasTwoLeadingESC := false
		if r2 == 0x1b {
			hasTwoLeadingESC = true
			r2 = readRune()
		}
		if r2 == runeEndOfSeq {
			// Nothing follows. Taken as a lone Escape.
			return ui.K(ui.Esc), nil
		}
		switch r2 {
		case '[':
			// A '[' follows. CSI style function key sequence.
			r = readRune()
			if r == runeEndOfSeq {
				return ui.K('[', ui.Alt), nil
			}
			var nums []int
		CSISeq:
			for {
				switch {
				case r == ';':
					nums = append(nums, 0)
				case '0' <= r && r <= '9':
					if len(nums) == 0 {
						nums = append(nums, 0)
					}
					cur := len(nums) - 1
					nums[cur] = nums[cur]*10 + int(r-'0')
				case r == runeEndOfSeq:
					badSeq("incomplete CSI")
					return
				default: // Treat as a terminator.
					break CSISeq
				}
				r = readRune()
			}
			k = parseCSI(nums, r)
			if k == (ui.Key{}) {
				badSeq("bad CSI")
				return
			}
			if hasTwoLeadingESC {
				k.Mod |= ui.Alt
			}
			return k, nil
		case 'O':
			// An 'O' follows. G3 style function key sequence: read one rune.
			r = readRune()
			if r == runeEndOfSeq {
				// Nothing follows after 'O'. Taken as Alt-O.
				return ui.K('O', ui.Alt), nil
			}
			var ok bool
			k, ok = g3Seq[r]
			if !ok {
				badSeq("bad G3")
				return
			}
			if hasTwoLeadingESC {
				k.Mod |= ui.Alt
			}
			return k, nil
		default:
			// Something other than '[' or 'O' follows. Taken as an
			// Alt-modified key, possibly also modified by Ctrl.
			k := ctrlModify(r2)
			k.Mod |= ui.Alt
			return k, nil
		}
	case '\r':
		// Sent for Enter when the terminal does not translate it.
		return ui.K(ui.Enter), nil
	case 0x08: // ^H
		return ui.K(ui.Backspace), nil
	default:
		return ctrlModify(r), nil
	}
}

// Determines whether a rune corresponds to a Ctrl-modified key and returns the
// ui.Key the rune represents.
func ctrlModify(r rune) ui.Key {
	switch r {
	case 0x0:
		return ui.K('`', ui.Ctrl) // ^@
	case 0x1e:
		return ui.K('6', ui.Ctrl) // ^^
	case 0x1f:
		return ui.K('/', ui.Ctrl) // ^_
	case ui.Tab, ui.Enter, ui.Backspace: // ^I ^J ^?
		// Ambiguous Ctrl keys; prefer the non-Ctrl form as they are more likely.
		return ui.K(r)
	default:
		// Regular ui.Ctrl sequences.
		if 0x1 <= r && r <= 0x1d {
			return ui.K(r+0x40, ui.Ctrl)
		}
	}
	return ui.K(r)
}

// G3-style key sequences: \eO followed by exactly one character. For instance,
// \eOP is F1.
var g3Seq = map[rune]ui.Key{
	'A': ui.K(ui.Up), 'B': ui.K(ui.Down), 'C': ui.K(ui.Right), 'D': ui.K(ui.Left),
	'H': ui.K(ui.Home), 'F': ui.K(ui.End), 'M': ui.K(ui.Insert),
	'P': ui.K(ui.F1), 'Q': ui.K(ui.F2), 'R': ui.K(ui.F3), 'S': ui.K(ui.F4),
}

// CSI-style key sequences identified by the last rune. For instance, \e[A is
// Up. When modified, two numerical arguments are added, the first always being
// 1 and the second identifying the modifier. For instance, \e[1;5A is Ctrl-Up.
var csiSeqByLast = map[rune]ui.Key{
	'A': ui.K(ui.Up), 'B': ui.K(ui.Down), 'C': ui.K(ui.Right), 'D': ui.K(ui.Left),
	'H': ui.K(ui.Home), 'F': ui.K(ui.End),
	'P': ui.K(ui.F1), 'Q': ui.K(ui.F2), 'R': ui.K(ui.F3), 'S': ui.K(ui.F4),
	'Z': ui.K(ui.Tab, ui.Shift),
}

// CSI-style key sequences ending with '~' with by one or two numerical
// arguments. The first argument identifies the key, and the optional second
// argument identifies the modifier. For instance, \e[3~ is Delete, and \e[3;5~
// is Ctrl-Delete.
var csiSeqTilde = map[int]rune{
	1: ui.Home, 2: ui.Insert, 3: ui.Delete, 4: ui.End,
	5: ui.PageUp, 6: ui.PageDown, 7: ui.Home, 8: ui.End,
	11: ui.F1, 12: ui.F2, 13: ui.F3, 14: ui.F4,
	15: ui.F5, 17: ui.F6, 18: ui.F7, 19: ui.F8,
	20: ui.F9, 21: ui.F10, 23: ui.F11, 24: ui.F12,
}

// CSI-style key sequences ending with '~', with the first argument always 27,
// the second argument identifying the modifier, and the third argument
// identifying the key. Terminals with modifyOtherKeys enabled send these; for
// instance, \e[27;5;13~ is Ctrl-Enter.
var csiSeqTilde27 = map[int]rune{
	9: ui.Tab, 13: ui.Enter,
}

// parseCSI parses a CSI-style key sequence.
func parseCSI(nums []int, last rune) ui.Key {
	if k, ok := csiSeqByLast[last]; ok {
		switch {
		case len(nums) == 0:
			// Unmodified: \e[A (Up)
			return k
		case len(nums) == 2 && nums[0] == 1:
			// Modified: \e[1;5A (Ctrl-Up)
			return xtermModify(k, nums[1])
		default:
			return ui.Key{}
		}
	}

	if last == '~' {
		switch {
		case len(nums) == 1 || len(nums) == 2:
			if r, ok := csiSeqTilde[nums[0]]; ok {
				k := ui.K(r)
				if len(nums) == 1 {
					// Unmodified: \e[5~ (PageUp)
					return k
				}
				// Modified: \e[5;5~ (Ctrl-PageUp)
				return xtermModify(k, nums[1])
			}
		case len(nums) == 3 && nums[0] == 27:
			if r, ok := csiSeqTilde27[nums[2]]; ok {
				return xtermModify(ui.K(r), nums[1])
			}
			// Printable characters, such as \e[27;5;109~ for Ctrl-M.
			if r := rune(nums[2]); 0x20 < r && r < 0x7f {
				k := xtermModify(ui.K(r), nums[1])
				if k.Mod&ui.Ctrl != 0 && 'a' <= r && r <= 'z' {
					k.Rune -= 'a' - 'A'
				}
				return k
			}
		}
	}
	return ui.Key{}
}

func xtermModify(k ui.Key, mod int) ui.Key {
	if mod < 0 || mod > 16 {
		// Out of range
		return ui.Key{}
	}
	if mod == 0 {
		return k
	}
	modFlags := mod - 1
	if modFlags&0x1 != 0 {
		k.Mod |= ui.Shift
	}
	if modFlags&0x2 != 0 {
		k.Mod |= ui.Alt
	}
	if modFlags&0x4 != 0 {
		k.Mod |= ui.Ctrl
	}
	if modFlags&0x8 != 0 {
		k.Mod |= ui.Cmd
	}
	return k
}
