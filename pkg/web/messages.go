package web

import (
	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/overlay"
	"src.codepad.dev/pkg/session"
)

// Types of messages sent by the browser over the session WebSocket.
const (
	MessageEdit      = "edit"
	MessageLanguage  = "language"
	MessageRun       = "run"
	MessageToggleVim = "toggle-vim"
	MessageKey       = "key"
	MessageMounted   = "mounted"
)

// Types of messages sent by the server over the session WebSocket.
const (
	MessageHello = "hello"
	MessageState = "state"
	MessageVim   = "vim"
	MessageError = "error"
)

// Values of ServerMessage.Action in vim messages.
const (
	VimAttach = "attach"
	VimDetach = "detach"
)

// ClientMessage is a message from the browser.
type ClientMessage struct {
	Type string `json:"type"`
	// For edit. Seq numbers the edits of the page, starting from 1.
	Text string `json:"text,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
	// For language.
	Language string `json:"language,omitempty"`
	// For key.
	Key *DOMKey `json:"key,omitempty"`
}

// DOMKey carries the fields of a DOM KeyboardEvent.
type DOMKey struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrlKey"`
	Alt   bool   `json:"altKey"`
	Shift bool   `json:"shiftKey"`
	Meta  bool   `json:"metaKey"`
}

// ServerMessage is a message to the browser. Which fields are set depends on
// the type.
type ServerMessage struct {
	Type string `json:"type"`
	// For hello.
	Session   string              `json:"session,omitempty"`
	Bindings  map[string][]string `json:"bindings,omitempty"`
	Languages []Language          `json:"languages,omitempty"`
	// For state. Seq is the sequence number of the latest edit of the page
	// that the text reflects, or 0 if the text may predate all of them. The
	// page only applies the text when Seq is its latest edit.
	State *State `json:"state,omitempty"`
	Seq   int64  `json:"seq,omitempty"`
	// For vim.
	Action string `json:"action,omitempty"`
	// For error.
	Message string `json:"message,omitempty"`
}

// State is the state of a session as seen by the browser.
type State struct {
	Text     string        `json:"text"`
	Language lang.Language `json:"language"`
	Output   []string      `json:"output"`
	Raised   bool          `json:"raised"`
	Running  bool          `json:"running"`
	// Whether the Vim overlay is enabled.
	Vim bool `json:"vim"`
	// Whether monaco-vim should currently be attached.
	Attached bool `json:"attached"`
	// Whether the Vim status bar is shown.
	StatusVisible bool `json:"statusVisible"`
	Mounted       bool `json:"mounted"`
}

func stateOf(s session.Snapshot) *State {
	output := s.Output
	if output == nil {
		output = []string{}
	}
	return &State{
		Text:          s.Text,
		Language:      s.Language,
		Output:        output,
		Raised:        s.Raised,
		Running:       s.Running,
		Vim:           s.Overlay == overlay.Enabled,
		Attached:      s.Attached,
		StatusVisible: s.StatusVisible,
		Mounted:       s.Mounted,
	}
}

// Language describes an entry of the language selector.
type Language struct {
	ID         lang.Language `json:"id"`
	Name       string        `json:"name"`
	Executable bool          `json:"executable"`
}

func languages() []Language {
	all := lang.All()
	ls := make([]Language, len(all))
	for i, l := range all {
		ls[i] = Language{l, l.DisplayName(), l.Executable()}
	}
	return ls
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	// Defaults to the configured language.
	Language string `json:"language"`
	Code     string `json:"code"`
}

// RunResponse is the response to POST /api/run.
type RunResponse struct {
	// Lines joined with newlines, as shown in the output pane.
	Output string   `json:"output"`
	Lines  []string `json:"lines"`
	Raised bool     `json:"raised"`
}
