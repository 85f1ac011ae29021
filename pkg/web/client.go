package web

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"src.codepad.dev/pkg/document"
	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/overlay"
	"src.codepad.dev/pkg/session"
	"src.codepad.dev/pkg/ui"
)

const (
	// Time allowed to write a message.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message.
	pongWait = 60 * time.Second
	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum size of a message from the browser.
	maxMessageSize = 1 << 20
)

// client is the server side of a session WebSocket.
type client struct {
	conn  *websocket.Conn
	sess  *session.Session
	out   outbox
	edits editLog

	closeOnce sync.Once
}

func (s *Server) openSession(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has replied with an error.
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{conn: conn}
	cl.out.init()
	cl.sess = session.New(session.Spec{
		Placeholder: s.cfg.Placeholder,
		Language:    s.cfg.Language,
		Bridge:      s.cfg.Bridge,
		Emulator:    remoteEmulator{cl},
		AfterRender: cl.afterSent,
		Bindings:    s.cfg.Bindings,
		OnUpdate:    func(snap session.Snapshot) { cl.sendState(snap) },
		OnError:     func(err error) { cl.sendError(err) },
	})
	if !s.register(cl) {
		cl.sess.Close()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server is shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	log := logger.With().Str("session", cl.sess.ID()).Logger()
	log.Info().Str("client", c.ClientIP()).Msg("session opened")

	cl.out.put(outItem{msg: &ServerMessage{
		Type:      MessageHello,
		Session:   cl.sess.ID(),
		Bindings:  cl.sess.Router().Bindings().Names(),
		Languages: languages(),
	}})
	cl.sendState(cl.sess.Snapshot())

	go cl.writePump()
	cl.readPump()

	s.unregister(cl)
	cl.close()
	log.Info().Msg("session closed")
}

// readPump handles messages from the browser until the connection fails.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Str("session", c.sess.ID()).Msg("websocket error")
			}
			return
		}
		if err := c.handle(msg); err != nil {
			c.sendError(err)
		}
	}
}

func (c *client) handle(msg ClientMessage) error {
	switch msg.Type {
	case MessageEdit:
		rev := c.sess.SetText(msg.Text)
		if msg.Seq > 0 {
			c.edits.record(msg.Seq, rev)
		}
	case MessageLanguage:
		l, err := lang.Parse(msg.Language)
		if err != nil {
			return err
		}
		c.sess.SetLanguage(l)
	case MessageRun:
		c.sess.RunInBackground()
	case MessageToggleVim:
		c.sess.ToggleOverlay()
	case MessageKey:
		if msg.Key == nil {
			return errors.New("key message without key")
		}
		k, ok := ui.FromDOM(msg.Key.Key, msg.Key.Ctrl, msg.Key.Alt, msg.Key.Shift, msg.Key.Meta)
		if ok {
			c.sess.HandleKey(k)
		}
	case MessageMounted:
		c.sess.Mount()
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
	return nil
}

// writePump writes queued messages to the connection, and runs the functions
// queued after them once they have been written.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.out.ready:
			items, closed := c.out.take()
			for _, item := range items {
				if item.after != nil {
					item.after()
					continue
				}
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteJSON(item.msg); err != nil {
					logger.Warn().Err(err).Str("session", c.sess.ID()).Msg("cannot write message")
					return
				}
			}
			if closed {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *client) sendState(snap session.Snapshot) {
	c.out.put(outItem{msg: &ServerMessage{
		Type: MessageState, State: stateOf(snap), Seq: c.edits.ack(snap.Revision)}})
}

func (c *client) sendError(err error) {
	c.out.put(outItem{msg: &ServerMessage{Type: MessageError, Message: err.Error()}})
}

func (c *client) sendVim(action string) {
	c.out.put(outItem{msg: &ServerMessage{Type: MessageVim, Action: action}})
}

// afterSent is the after-render hook of the session: the browser renders a
// state as soon as it receives it, so f is run once the current state has
// been written to the connection.
func (c *client) afterSent(f func()) {
	c.sendState(c.sess.Snapshot())
	c.out.put(outItem{after: f})
}

// close ends the session. The connection is closed once the queued messages
// have been written.
func (c *client) close() {
	c.closeOnce.Do(func() {
		c.sess.Close()
		c.out.close()
	})
}

// remoteEmulator attaches monaco-vim in the browser.
type remoteEmulator struct{ c *client }

func (e remoteEmulator) Attach(*document.Document, overlay.StatusBar) (overlay.Handle, error) {
	return &remoteHandle{e.c}, nil
}

type remoteHandle struct{ c *client }

// Activate tells the browser to attach monaco-vim. It is called after the
// state with attached set has been queued.
func (h *remoteHandle) Activate() { h.c.sendVim(VimAttach) }

func (h *remoteHandle) Dispose() { h.c.sendVim(VimDetach) }

// editLog maps the sequence numbers of the edit messages of a client to the
// document revisions they produced.
type editLog struct {
	mu      sync.Mutex
	entries []editEntry
}

type editEntry struct {
	seq int64
	rev uint64
}

// Only the most recent entries are kept. States older than all of them are
// acknowledged with 0, which the browser treats as stale.
const maxEditLog = 64

func (l *editLog) record(seq int64, rev uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, editEntry{seq, rev})
	if len(l.entries) > maxEditLog {
		l.entries = append([]editEntry(nil), l.entries[len(l.entries)-maxEditLog:]...)
	}
}

// ack returns the sequence number of the latest edit whose revision is at
// most rev, or 0 if there is none.
func (l *editLog) ack(rev uint64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].rev <= rev {
			return l.entries[i].seq
		}
	}
	return 0
}

// outItem is either a message or a function to run after the messages before
// it have been written.
type outItem struct {
	msg   *ServerMessage
	after func()
}

// outbox is an unbounded queue of outgoing items. Functions run by the writer
// may put more items without blocking.
type outbox struct {
	mu     sync.Mutex
	items  []outItem
	closed bool
	ready  chan struct{}
}

func (o *outbox) init() {
	o.ready = make(chan struct{}, 1)
}

func (o *outbox) put(item outItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.items = append(o.items, item)
	o.signal()
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.signal()
}

// Must be called with mu held.
func (o *outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

func (o *outbox) take() ([]outItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	items := o.items
	o.items = nil
	return items, o.closed
}
