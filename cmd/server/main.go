// Package main is the entry point for the analytics dashboard server.
//
// main stays minimal: read configuration, build the logger and the
// dependency graph, start the server. Everything else lives in internal/.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/social-analytics/internal/app"
	"github.com/sakif/social-analytics/internal/config"
	"github.com/sakif/social-analytics/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// Logged with a default logger because LOG_LEVEL itself comes from here.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// === 3. DEPENDENCIES ===
	a, err := app.Build(cfg, logger, app.Options{})
	if err != nil {
		logger.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. SERVER ===
	srv, err := server.New(server.Config{
		Port:        cfg.Port,
		CORSOrigins: cfg.CORSOrigins,
	}, a.Service, logger)
	if err != nil {
		a.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM; the store is closed only after the
	// background initialization has stopped.
	runErr := srv.Start()
	if err := a.Close(); err != nil {
		logger.Error("closing store", slog.String("error", err.Error()))
	}
	if runErr != nil {
		logger.Error("server error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
