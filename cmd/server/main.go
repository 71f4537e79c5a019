// Package main is the entry point for the ChatQA backend server.
//
// The main package stays minimal: load configuration, build the logger,
// hand off to internal/server. All actual logic lives in the imported
// packages, which keeps them testable and reusable by the other
// executables under cmd/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phm-oh/chatqa-backend/internal/config"
	"github.com/phm-oh/chatqa-backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level := slog.LevelDebug
	if cfg.Env == "production" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	if cfg.JWTSecret == "" {
		// Refuse to start rather than run with a guessable secret.
		// Generate one with: openssl rand -hex 32
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	// Ensure the directory holding the SQLite file exists.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
