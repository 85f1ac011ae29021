// Package lang defines the languages offered by the playground's language
// selector.
package lang

import (
	"errors"
	"fmt"
)

// Language is one of the fixed set of selectable languages.
type Language int

// The selectable languages, in the order they are offered.
const (
	JavaScript Language = iota
	TypeScript
	Python
	Java
)

// Default is the language selected when a session starts.
const Default = JavaScript

var names = [...]string{"javascript", "typescript", "python", "java"}

var displayNames = [...]string{"JavaScript", "TypeScript", "Python", "Java"}

// ErrUnknown is wrapped by the error returned from Parse for names that are
// not in the fixed set.
var ErrUnknown = errors.New("unknown language")

// All returns all languages, in selector order.
func All() []Language {
	return []Language{JavaScript, TypeScript, Python, Java}
}

// Parse returns the language with the given identifier, such as "javascript".
func Parse(name string) (Language, error) {
	for i, n := range names {
		if n == name {
			return Language(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// String returns the identifier of the language, as accepted by Parse.
func (l Language) String() string {
	if l < 0 || int(l) >= len(names) {
		return fmt.Sprintf("Language(%d)", int(l))
	}
	return names[l]
}

// DisplayName returns the human-readable name shown in the selector.
func (l Language) DisplayName() string {
	if l < 0 || int(l) >= len(displayNames) {
		return l.String()
	}
	return displayNames[l]
}

// Executable reports whether source in the language can be run. Only
// JavaScript and TypeScript are; TypeScript source is run as-is.
func (l Language) Executable() bool {
	return l == JavaScript || l == TypeScript
}

// Next returns the language following l in selector order, wrapping around.
func (l Language) Next() Language {
	return Language((int(l) + 1) % len(names))
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	if l < 0 || int(l) >= len(names) {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(l))
	}
	return []byte(names[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
