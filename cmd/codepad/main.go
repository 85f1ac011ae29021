// Codepad is a code playground: an editor with an optional Vim overlay and an
// output pane showing what the code logs. It runs as a terminal UI, as a web
// server for browsers, or as a runner for a single script.
package main

import (
	"os"

	"src.codepad.dev/pkg/buildinfo"
	"src.codepad.dev/pkg/prog"
	"src.codepad.dev/pkg/script"
	"src.codepad.dev/pkg/tui"
	"src.codepad.dev/pkg/web"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			&buildinfo.Program{}, &web.Program{}, &script.Program{}, &tui.Program{})))
}
