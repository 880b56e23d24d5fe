package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Run starts the daemon and blocks until shutdown. SIGTERM and SIGINT
// trigger a graceful stop; SIGPIPE is ignored so a dying client cannot take
// the daemon with it.
func Run(ctx context.Context, cfg *ServerConfig) error {
	srv, err := NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signal.Ignore(syscall.SIGPIPE)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			srv.logger.Info("signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return srv.Start(ctx)
}

// IsRunning reports whether a daemon PID file points at a live process.
func IsRunning(pidPath string) bool {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return false
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
