// Package app is the composition root: it turns a Config into a ready
// AnalyticsService and the resources behind it.
//
// DEPENDENCY CHAIN:
//
//	config → store (sqlite, optionally sealed)  ─┐
//	config → evalapi.Client → auth.Authenticator ─┼→ service.AnalyticsService
//	                       └→ fetcher.Fetcher   ─┘
//
// Both binaries (the server and analyticsctl) build the same graph, so it
// lives here instead of in either main package.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sakif/social-analytics/internal/auth"
	"github.com/sakif/social-analytics/internal/config"
	"github.com/sakif/social-analytics/internal/evalapi"
	"github.com/sakif/social-analytics/internal/fetcher"
	"github.com/sakif/social-analytics/internal/repository"
	"github.com/sakif/social-analytics/internal/repository/memory"
	"github.com/sakif/social-analytics/internal/repository/sealed"
	sqliteRepo "github.com/sakif/social-analytics/internal/repository/sqlite"
	"github.com/sakif/social-analytics/internal/service"
)

// App owns the service and every resource that must be released on exit.
type App struct {
	Service *service.AnalyticsService
	Store   repository.Store

	closer io.Closer // nil for the in-memory store
}

// Options tweak how Build wires the graph.
type Options struct {
	// Ephemeral uses an in-memory store instead of the SQLite file.
	Ephemeral bool
	// HTTPClient overrides the client used for the evaluation API. Tests use
	// it to point at httptest servers with custom transports.
	HTTPClient *http.Client
}

// Build wires the application described by cfg.
func Build(cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	store, closer, err := openStore(cfg, opts.Ephemeral, logger)
	if err != nil {
		return nil, err
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	client := evalapi.New(cfg.APIBaseURL, hc, logger)

	svc := service.NewAnalyticsService(
		cfg.Credentials,
		store,
		auth.NewAuthenticator(client, logger),
		fetcher.New(client, cfg.FetchWorkers, logger),
		logger,
	)

	return &App{Service: svc, Store: store, closer: closer}, nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func openStore(cfg *config.Config, ephemeral bool, logger *slog.Logger) (repository.Store, io.Closer, error) {
	var (
		store  repository.Store
		closer io.Closer
	)

	if ephemeral {
		store = memory.New()
	} else {
		if cfg.DBPath != ":memory:" {
			// mkdir -p for the database directory
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, nil, fmt.Errorf("app: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("app: opening database: %w", err)
		}
		store, closer = db, db
	}

	if cfg.StoreSecret == "" {
		return store, closer, nil
	}

	sealedStore, err := sealed.New(store, cfg.StoreSecret)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, fmt.Errorf("app: sealing store: %w", err)
	}
	logger.Debug("store values are encrypted at rest")
	return sealedStore, closer, nil
}
