// Package web implements the web frontend of codepad: an HTTP server that
// serves the playground page, runs code, and keeps a session for every open
// page over a WebSocket.
package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"src.codepad.dev/pkg/bridge"
	"src.codepad.dev/pkg/logutil"
	"src.codepad.dev/pkg/prog"
	"src.codepad.dev/pkg/shortcut"
)

var logger = logutil.GetLogger("web")

// Time allowed for open requests to finish when the server shuts down.
const shutdownTimeout = 5 * time.Second

// Program is the web server subprogram.
type Program struct {
	web    bool
	listen string
	config *prog.ConfigFlags
}

// RegisterFlags registers -web, -listen and the configuration flags.
func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.web, "web", false, "Run the web server")
	fs.StringVar(&p.listen, "listen", "",
		"Address for the web server to listen on (default :8080, or :$PORT)")
	p.config = fs.Config()
}

// Run runs the web server until interrupted.
func (p *Program) Run(fds [3]*os.File, args []string) error {
	if !p.web {
		return prog.ErrNotSuitable
	}
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed with -web")
	}
	if !p.config.IsSet("log") {
		logutil.SetConsoleOutput(fds[2])
	}

	o := p.config.Overrides()
	if p.config.IsSet("listen") {
		o.Listen = &p.listen
	}
	cfg, err := p.config.Load(o)
	if err != nil {
		return err
	}

	bindings := shortcut.DefaultBindings()
	if err := cfg.Keys.Apply(bindings); err != nil {
		return err
	}
	srv := NewServer(Config{
		Placeholder: cfg.Placeholder,
		Language:    cfg.Lang(),
		Bridge: bridge.New(bridge.Config{
			Evaluator: bridge.NewGoja(bridge.GojaConfig{MaxCallStack: cfg.MaxCallStack}),
			Timeout:   cfg.RunTimeout,
		}),
		AllowedOrigins: cfg.AllowedOrigins,
		Bindings:       bindings,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, &http.Server{Addr: cfg.Listen, Handler: srv.Handler()}, srv)
}

// Serves until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, hs *http.Server, srv *Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", hs.Addr).Msg("listening")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		srv.Close()
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	// Hijacked WebSocket connections are not tracked by http.Server.
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
