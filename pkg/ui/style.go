package ui

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is one of the 16 ANSI colors. The zero value is the default color of
// the terminal.
type Color int

// Possible values of Color.
const (
	Default Color = iota
	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
	BrightBlack
	BrightRed
	BrightGreen
	BrightYellow
	BrightBlue
	BrightMagenta
	BrightCyan
	BrightWhite
)

var colorNames = []string{
	"default", "black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
}

func (c Color) String() string {
	switch {
	case c < BrightBlack:
		if c >= 0 && int(c) < len(colorNames) {
			return colorNames[c]
		}
	case c <= BrightWhite:
		return "bright-" + colorNames[c-BrightBlack+1]
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

func (c Color) fgSGR() string {
	if c >= BrightBlack {
		return strconv.Itoa(90 + int(c-BrightBlack))
	}
	return strconv.Itoa(30 + int(c-Black))
}

func parseColor(name string) (Color, bool) {
	bright := strings.HasPrefix(name, "bright-")
	name = strings.TrimPrefix(name, "bright-")
	for i, n := range colorNames {
		if n != name {
			continue
		}
		c := Color(i)
		if bright {
			if c == Default {
				return 0, false
			}
			c += BrightBlack - Black
		}
		return c, true
	}
	return 0, false
}

// Style specifies how a piece of text is drawn on a terminal.
type Style struct {
	Foreground Color
	Bold       bool
	Dim        bool
	Italic     bool
	Underlined bool
	Inverse    bool
}

// SGR returns the SGR sequence for the style, without the leading CSI and the
// trailing "m". It is empty for the zero Style.
func (s Style) SGR() string {
	var sgr []string

	addIf := func(b bool, code string) {
		if b {
			sgr = append(sgr, code)
		}
	}
	addIf(s.Bold, "1")
	addIf(s.Dim, "2")
	addIf(s.Italic, "3")
	addIf(s.Underlined, "4")
	addIf(s.Inverse, "7")
	if s.Foreground != Default {
		sgr = append(sgr, s.Foreground.fgSGR())
	}

	return strings.Join(sgr, ";")
}

// ParseStyle parses a space-separated list of attributes and at most one
// color, such as "bold bright-red".
func ParseStyle(s string) (Style, error) {
	var style Style
	for _, word := range strings.Fields(s) {
		switch word {
		case "bold":
			style.Bold = true
		case "dim":
			style.Dim = true
		case "italic":
			style.Italic = true
		case "underlined":
			style.Underlined = true
		case "inverse":
			style.Inverse = true
		default:
			c, ok := parseColor(word)
			if !ok {
				return Style{}, fmt.Errorf("bad style attribute or color: %s", word)
			}
			style.Foreground = c
		}
	}
	return style, nil
}
