// Package server sets up the HTTP server, router, and route definitions.
//
// This is the wiring layer for HTTP: which URL maps to which handler, which
// middleware runs where, and how the process starts and stops. It also owns
// the one background job the dashboard has, the initialization run, because
// that run's lifetime is tied to the server's.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/social-analytics/internal/handler"
	"github.com/sakif/social-analytics/internal/middleware"
	"github.com/sakif/social-analytics/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// AnalyticsService is what the server needs from *service.AnalyticsService:
// the handlers' read side plus the initialization run.
type AnalyticsService interface {
	handler.AnalyticsService
	Initialize(ctx context.Context) (service.Snapshot, error)
}

// Server is the HTTP server and its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	svc    AnalyticsService
	logger *slog.Logger
}

func New(cfg Config, svc AnalyticsService, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		svc:    svc,
		logger: logger,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                    → dashboard (HTML)
// GET    /healthz             → liveness
// GET    /api/top-users       → current ranking (JSON)
// GET    /api/top-users/{id}  → one ranked user (JSON)
// DELETE /api/cache           → forget stored ranking and token
//
// MIDDLEWARE ORDER:
// RequestID first so every later layer (including our Logger) sees the ID,
// then RealIP, Recoverer, Logger. CORS only wraps /api; the HTML page is
// same-origin by definition.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	dashboard, err := handler.NewDashboardHandler(s.svc, s.logger)
	if err != nil {
		return fmt.Errorf("creating dashboard handler: %w", err)
	}
	s.router.Get("/", dashboard.HandleDashboard)
	s.router.Get("/healthz", handler.HandleHealth)

	analytics := handler.NewAnalyticsHandler(s.svc, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/top-users", analytics.HandleTopUsers)
		r.Get("/top-users/{id}", analytics.HandleTopUser)
		r.Delete("/cache", analytics.HandleClearCache)
	})

	return nil
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves HTTP and performs the initialization run in the background
// until ctx is cancelled.
//
// LIFECYCLE:
//  1. Start listening; the page shows "No data available." right away.
//  2. In parallel, Initialize fetches (or loads) the ranking and publishes it.
//     A failure is logged and the placeholder stays.
//  3. On ctx cancellation: cancel the run, drain HTTP for up to 30s, then
//     wait for the run goroutine so the caller can safely close the store.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	initCtx, cancelInit := context.WithCancel(ctx)
	defer cancelInit()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.initialize(initCtx)
	}()
	defer wg.Wait()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		cancelInit()
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		cancelInit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) initialize(ctx context.Context) {
	snap, err := s.svc.Initialize(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info("initialization cancelled")
			return
		}
		s.logger.Error("initialization failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("dashboard ready",
		slog.String("source", string(snap.Source)),
		slog.Int("users", len(snap.Users)),
		slog.String("run", snap.RunID),
	)
}
