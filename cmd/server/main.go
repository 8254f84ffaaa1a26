// Package main is the entry point for the blog server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (env vars, .env file, optional config.yml)
// 2. Create the logger
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// This project has two: cmd/server (the web app) and cmd/seed (demo data).
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sakif/inkwell/internal/config"
	"github.com/sakif/inkwell/internal/server"
)

func main() {
	// === 1. LOAD .env ===
	// A .env file is a development convenience. In production the variables
	// come from the real environment, so a missing file is not an error.
	_ = godotenv.Load()

	// === 2. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SET UP LOGGING ===
	// Text logs are easier to read in a terminal. JSON logs are easier for
	// log collectors to parse.
	level, _ := config.ParseLogLevel(cfg.LogLevel) // already checked by Validate
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	// === 4. ENSURE DATA DIRECTORIES ===
	// os.MkdirAll is `mkdir -p`. 0755 = owner rwx, others r-x.
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.MediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create data directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
