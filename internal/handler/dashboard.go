// Package handler contains the HTTP handlers for the analytics dashboard.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, headers)
//  2. Ask the service for state, or tell it to do something
//  3. Write the response (status, headers, body)
//
// Handlers hold no business logic. In particular they never trigger a fetch
// of the evaluation API: the page only renders whatever the service last
// published, exactly like a component rendering its current state.
package handler

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// AnalyticsService is the part of *service.AnalyticsService the handlers use.
type AnalyticsService interface {
	Current() service.Snapshot
	ClearCache(ctx context.Context) error
}

// DashboardHandler renders the "Top Users" page.
// Templates are parsed once at construction and reused for every request.
type DashboardHandler struct {
	templates *template.Template
	svc       AnalyticsService
	logger    *slog.Logger
}

// NewDashboardHandler parses the embedded templates.
//
// TEMPLATE COMPOSITION:
// base.html defines the page shell with a {{template "content" .}} hole;
// dashboard.html fills it with {{define "content"}}.
func NewDashboardHandler(svc AnalyticsService, logger *slog.Logger) (*DashboardHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/dashboard.html")
	if err != nil {
		return nil, err
	}

	return &DashboardHandler{
		templates: tmpl,
		svc:       svc,
		logger:    logger,
	}, nil
}

type dashboardData struct {
	Title     string
	Users     []model.RankedUser
	Source    service.Source
	UpdatedAt string
}

// HandleDashboard serves GET /.
//
// Before the first run finishes (or after a failed one) the snapshot is
// empty and the page shows "No data available.".
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Current()

	data := dashboardData{
		Title:  "Top Users",
		Users:  snap.Users,
		Source: snap.Source,
	}
	if !snap.UpdatedAt.IsZero() {
		data.UpdatedAt = snap.UpdatedAt.Format(time.RFC1123)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
