package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/radio-control/rfkd/internal/audit"
	"github.com/radio-control/rfkd/internal/config"
)

// Server is the control API server.
type Server struct {
	killswitches KillswitchPort
	telemetryHub TelemetryPort
	settings     config.KillswitchConfig
	cfg          config.APIConfig
	startTime    time.Time

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates an API server. settings is reported by GET /config.
func NewServer(killswitches KillswitchPort, telemetryHub TelemetryPort, settings config.KillswitchConfig, cfg config.APIConfig) *Server {
	return &Server{
		killswitches: killswitches,
		telemetryHub: telemetryHub,
		settings:     settings,
		cfg:          cfg,
		startTime:    time.Now(),
	}
}

// Handler returns the routes wrapped for cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return h2c.NewHandler(withActor(mux), &http2.Server{IdleTimeout: s.cfg.IdleTimeout})
}

// Start listens on addr and serves until Stop. An addr of the form
// "unix:/path" listens on a Unix socket.
func (s *Server) Start(addr string) error {
	ln, err := listen(addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down, waiting for requests up to ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

func listen(addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		return net.Listen("unix", path)
	}
	return net.Listen("tcp", addr)
}

// withActor tags each request with the client address for the audit log.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.RemoteAddr
		if actor == "" || actor == "@" {
			actor = "local"
		}
		next.ServeHTTP(w, r.WithContext(audit.WithActor(r.Context(), actor)))
	})
}
