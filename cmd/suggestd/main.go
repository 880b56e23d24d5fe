// suggestd is the autocomplete suggestion daemon. It loads the configured
// retrieval components, listens on a private Unix socket, and serves ranked
// suggestions until shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/runger/suggestd/internal/config"
	"github.com/runger/suggestd/internal/log"
	"github.com/runger/suggestd/internal/manager"
	"github.com/runger/suggestd/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "suggestd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default: XDG config dir)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := log.NewFromEnv()
	if cfg.Daemon.LogLevel == "debug" {
		logger = log.New(&log.Config{Debug: true})
	}

	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	mgr, err := manager.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build suggestion manager: %w", err)
	}

	return server.Run(context.Background(), &server.ServerConfig{
		Manager:     mgr,
		Paths:       paths,
		SocketPath:  cfg.Daemon.SocketPath,
		Logger:      logger,
		IdleTimeout: time.Duration(cfg.Daemon.IdleTimeoutMins) * time.Minute,
	})
}
