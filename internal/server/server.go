// Package server implements the suggestd daemon: an HTTP API served over a
// private Unix socket, with PID-file bookkeeping and idle auto-shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/runger/suggestd/internal/api"
	"github.com/runger/suggestd/internal/config"
	"github.com/runger/suggestd/internal/manager"
)

// Version is set at build time
var Version = "dev"

// Server is the daemon: it owns the manager, the socket listener, and the
// lifecycle goroutines.
type Server struct {
	manager *manager.Manager
	paths   *config.Paths
	logger  *slog.Logger

	socketPath string
	httpServer *http.Server
	listener   net.Listener

	startTime    time.Time
	idleTimeout  time.Duration
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	mu           sync.RWMutex
	lastActivity time.Time
}

// ServerConfig contains configuration options for the daemon server.
type ServerConfig struct {
	// Manager is the suggestion engine (required).
	Manager *manager.Manager

	// Paths is the path configuration (optional, uses defaults if nil).
	Paths *config.Paths

	// SocketPath overrides the default socket location (optional).
	SocketPath string

	// Logger is the structured logger (optional, uses default if nil).
	Logger *slog.Logger

	// IdleTimeout shuts the daemon down after this long without requests.
	// Zero disables idle shutdown.
	IdleTimeout time.Duration
}

// NewServer creates a new daemon server with the given configuration.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil || cfg.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	paths := cfg.Paths
	if paths == nil {
		paths = config.DefaultPaths()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = paths.SocketFile()
	}

	now := time.Now()
	return &Server{
		manager:      cfg.Manager,
		paths:        paths,
		logger:       logger,
		socketPath:   socketPath,
		startTime:    now,
		lastActivity: now,
		idleTimeout:  cfg.IdleTimeout,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start listens on the Unix socket and serves until the context is cancelled
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// Clean up stale socket
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove stale socket", "path", s.socketPath, "error", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	// Readable/writable by owner only
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	handler := api.NewHandler(api.HandlerDependencies{
		Suggester:  s.manager,
		Logger:     s.logger,
		ShutdownFn: s.Shutdown,
	})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	s.httpServer = &http.Server{Handler: s.touchMiddleware(mux)}

	if err := s.writePIDFile(); err != nil {
		listener.Close()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	s.logger.Info("daemon starting",
		"socket", s.socketPath,
		"pid", os.Getpid(),
		"version", Version,
	)

	if s.idleTimeout > 0 {
		s.wg.Add(1)
		go s.watchIdle(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		} else {
			errChan <- nil
		}
	}()

	select {
	case <-ctx.Done():
		s.Shutdown()
		<-errChan
		return nil
	case err := <-errChan:
		s.Shutdown()
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("daemon shutting down")
		close(s.shutdownChan)

		if s.httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("http shutdown", "error", err)
			}
		}
		s.wg.Wait()
		s.manager.Close()
		s.cleanup()
		s.logger.Info("daemon stopped")
	})
}

// cleanup removes the socket and PID file.
func (s *Server) cleanup() {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove socket", "path", s.socketPath, "error", err)
	}
	pidPath := s.paths.PIDFile()
	if err := os.Remove(pidPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove PID file", "path", pidPath, "error", err)
	}
}

// writePIDFile writes the current process ID to the PID file.
func (s *Server) writePIDFile() error {
	return os.WriteFile(s.paths.PIDFile(), []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600)
}

// touchMiddleware records request activity for the idle watcher.
func (s *Server) touchMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.touchActivity()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) touchActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Server) getLastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// watchIdle monitors for idle timeout and initiates shutdown.
func (s *Server) watchIdle(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdownChan:
			return
		case <-ticker.C:
			since := time.Since(s.getLastActivity())
			if since > s.idleTimeout {
				s.logger.Info("idle timeout reached",
					"idle_duration", since,
					"timeout", s.idleTimeout,
				)
				go s.Shutdown()
				return
			}
		}
	}
}
