package web

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"slices"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"src.codepad.dev/pkg/bridge"
	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/shortcut"
)

//go:embed index.html
var indexHTML []byte

// Config configures a Server.
type Config struct {
	// Initial content of the document of new sessions.
	Placeholder string
	// Initial language of new sessions, and the language of POST /api/run
	// requests that don't name one.
	Language lang.Language
	// Runs code. If nil, a Bridge with a goja evaluator and no timeout is
	// used.
	Bridge *bridge.Bridge
	// Origins allowed to make cross-origin requests and to open sessions. "*"
	// allows all origins. If empty, only same-origin requests are allowed.
	AllowedOrigins []string
	// Shortcut bindings of new sessions. If nil, shortcut.DefaultBindings is
	// used.
	Bindings shortcut.Bindings
}

// Server serves the playground. It keeps a session for every open WebSocket.
type Server struct {
	cfg      Config
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

// NewServer creates a new Server.
func NewServer(cfg Config) *Server {
	if cfg.Bridge == nil {
		cfg.Bridge = bridge.New(bridge.Config{Evaluator: bridge.NewGoja(bridge.GojaConfig{})})
	}
	if cfg.Bindings == nil {
		cfg.Bindings = shortcut.DefaultBindings()
	}
	s := &Server{cfg: cfg, clients: make(map[string]*client)}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if corsConfig, ok := s.corsConfig(); ok {
		router.Use(cors.New(corsConfig))
	}

	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	router.GET("/healthz", s.healthz)
	api := router.Group("/api")
	{
		api.GET("/languages", s.listLanguages)
		api.POST("/run", s.run)
		api.GET("/session", s.openSession)
	}
	s.engine = router
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// NumSessions returns the number of open sessions.
func (s *Server) NumSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close closes all sessions. Sessions opened afterwards are refused.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (s *Server) allowAllOrigins() bool {
	return slices.Contains(s.cfg.AllowedOrigins, "*")
}

func (s *Server) corsConfig() (cors.Config, bool) {
	if len(s.cfg.AllowedOrigins) == 0 {
		return cors.Config{}, false
	}
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}
	if s.allowAllOrigins() {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = s.cfg.AllowedOrigins
	}
	return c, true
}

// Browsers always send Origin with WebSocket handshakes. Requests without one
// do not come from a page, and are allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAllOrigins() || slices.Contains(s.cfg.AllowedOrigins, origin) {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.NumSessions()})
}

func (s *Server) listLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, languages())
}

func (s *Server) run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	l := s.cfg.Language
	if req.Language != "" {
		var err error
		l, err = lang.Parse(req.Language)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	res := s.cfg.Bridge.Run(c.Request.Context(), l, req.Code)
	if errors.Is(c.Request.Context().Err(), context.Canceled) {
		// The client went away.
		return
	}
	lines := res.Lines
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, RunResponse{Output: res.Output(), Lines: lines, Raised: res.Raised})
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c.sess.ID()] = c
	return true
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c.sess.ID())
}

