package ui

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Key represents a single keyboard input, either decoded from a terminal
// escape sequence or converted from a browser keyboard event.
type Key struct {
	Rune rune
	Mod  Mod
}

// K constructs a new Key.
func K(r rune, mods ...Mod) Key {
	var mod Mod
	for _, m := range mods {
		mod |= m
	}
	return Key{r, mod}
}

// Mod represents a modifier key.
type Mod byte

// Values for Mod.
const (
	// Shift is the shift modifier. It is only applied to special keys (e.g.
	// Shift-F1). For instance 'A' and '@' which are typically entered with the
	// shift key pressed, are not considered to be shift-modified.
	Shift Mod = 1 << iota
	// Alt is the alt modifier, traditionally known as the meta modifier.
	Alt
	Ctrl
	// Cmd is the command key on macOS keyboards, reported by browsers as
	// metaKey. Terminals never report it.
	Cmd
)

// Primary is the set of modifiers accepted as the "primary" modifier of a
// shortcut chord.
const Primary = Ctrl | Cmd

// Special negative runes to represent function keys, used in the Rune field of
// the Key struct.
const (
	F1 rune = -iota - 1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12

	Up
	Down
	Right
	Left

	Home
	Insert
	Delete
	End
	PageUp
	PageDown

	// Some function key names are just aliases for their ASCII representation

	Tab       = '\t'
	Enter     = '\n'
	Esc       = 0x1b
	Backspace = 0x7f
)

var functionKeyNames = [...]string{
	"(Invalid)",
	"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12",
	"Up", "Down", "Right", "Left",
	"Home", "Insert", "Delete", "End", "PageUp", "PageDown",
}

var keyNames = map[rune]string{
	Tab: "Tab", Enter: "Enter", Esc: "Esc", Backspace: "Backspace", ' ': "Space",
}

func (k Key) String() string {
	var b strings.Builder
	if k.Mod&Ctrl != 0 {
		b.WriteString("Ctrl-")
	}
	if k.Mod&Cmd != 0 {
		b.WriteString("Cmd-")
	}
	if k.Mod&Alt != 0 {
		b.WriteString("Alt-")
	}
	if k.Mod&Shift != 0 {
		b.WriteString("Shift-")
	}
	if k.Rune > 0 {
		if name, ok := keyNames[k.Rune]; ok {
			b.WriteString(name)
		} else {
			b.WriteRune(k.Rune)
		}
	} else {
		i := int(-k.Rune)
		if i >= len(functionKeyNames) {
			fmt.Fprintf(&b, "(bad function key %d)", i)
		} else {
			b.WriteString(functionKeyNames[i])
		}
	}
	return b.String()
}

// IsPrimaryChord reports whether the key carries Ctrl or Cmd.
func (k Key) IsPrimaryChord() bool { return k.Mod&Primary != 0 }

// modifierByName maps a name to an modifier. It is used for parsing keys where
// the modifier string is first turned to lower case, so that all of C, c,
// CTRL, Ctrl and ctrl can represent the Ctrl modifier.
var modifierByName = map[string]Mod{
	"s": Shift, "shift": Shift,
	"a": Alt, "alt": Alt, "opt": Alt, "option": Alt,
	"c": Ctrl, "ctrl": Ctrl,
	"cmd": Cmd, "command": Cmd, "meta": Cmd, "super": Cmd,
}

// ParseKey parses a key. The syntax is:
//
//	Key = { Mod ('+' | '-') } BareKey
//
//	BareKey = FunctionKeyName | SingleRune
//
// Letters modified by Ctrl or Cmd are case-insensitive and normalized to upper
// case.
func ParseKey(s string) (Key, error) {
	var k Key
	// Parse modifiers.
	for {
		i := strings.IndexAny(s, "+-")
		if i <= 0 {
			// A leading "-" or "+" is the bare key itself.
			break
		}
		modname := strings.ToLower(s[:i])
		mod, ok := modifierByName[modname]
		if !ok {
			return Key{}, fmt.Errorf("bad modifier: %s", modname)
		}
		k.Mod |= mod
		s = s[i+1:]
	}

	if utf8.RuneCountInString(s) == 1 {
		k.Rune, _ = utf8.DecodeRuneInString(s)
		return normalize(k), nil
	}

	for r, name := range keyNames {
		if strings.EqualFold(s, name) {
			k.Rune = r
			return k, nil
		}
	}
	// "Escape" and "Return" are common alternative names.
	switch strings.ToLower(s) {
	case "escape":
		k.Rune = Esc
		return k, nil
	case "return":
		k.Rune = Enter
		return k, nil
	}

	for i, name := range functionKeyNames[1:] {
		if s == name {
			k.Rune = rune(-i - 1)
			return k, nil
		}
	}

	return Key{}, fmt.Errorf("bad key: %s", s)
}

// MustParseKey is like ParseKey, but panics on error.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func normalize(k Key) Key {
	if k.Mod&Primary != 0 && unicode.IsLetter(k.Rune) {
		k.Rune = unicode.ToUpper(k.Rune)
	}
	return k
}

// domKeyNames maps values of KeyboardEvent.key that are not single characters.
var domKeyNames = map[string]rune{
	"Enter": Enter, "Tab": Tab, "Escape": Esc, "Backspace": Backspace,
	"ArrowUp": Up, "ArrowDown": Down, "ArrowLeft": Left, "ArrowRight": Right,
	"Home": Home, "End": End, "Insert": Insert, "Delete": Delete,
	"PageUp": PageUp, "PageDown": PageDown,
	"F1": F1, "F2": F2, "F3": F3, "F4": F4, "F5": F5, "F6": F6,
	"F7": F7, "F8": F8, "F9": F9, "F10": F10, "F11": F11, "F12": F12,
}

// FromDOM converts the fields of a browser KeyboardEvent into a Key. It
// returns false for keys that have no Key representation, such as a lone
// "Shift" or "Unidentified".
func FromDOM(key string, ctrl, alt, shift, meta bool) (Key, bool) {
	var k Key
	if ctrl {
		k.Mod |= Ctrl
	}
	if alt {
		k.Mod |= Alt
	}
	if meta {
		k.Mod |= Cmd
	}
	if r, ok := domKeyNames[key]; ok {
		k.Rune = r
		if shift {
			k.Mod |= Shift
		}
		return k, true
	}
	if utf8.RuneCountInString(key) != 1 {
		return Key{}, false
	}
	// Shift is already reflected in the character itself.
	k.Rune, _ = utf8.DecodeRuneInString(key)
	return normalize(k), true
}
