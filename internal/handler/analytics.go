package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/service"
)

// AnalyticsHandler serves the JSON view of the ranking.
type AnalyticsHandler struct {
	svc    AnalyticsService
	logger *slog.Logger
}

func NewAnalyticsHandler(svc AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger}
}

// HandleTopUsers returns the current snapshot.
//
// HTTP: GET /api/top-users
//
//	{"users":[{"id":"2","name":"Bob","postCount":10}],"source":"remote","updatedAt":"...","runId":"..."}
func (h *AnalyticsHandler) HandleTopUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Current())
}

// HandleTopUser returns one ranked user with their position (1-based).
//
// HTTP: GET /api/top-users/{id}
// 404 if the user is not in the current top list.
func (h *AnalyticsHandler) HandleTopUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "user id is required"))
		return
	}

	snap := h.svc.Current()
	for i, u := range snap.Users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, rankedUserResponse{
				Rank:      i + 1,
				ID:        u.ID,
				Name:      u.Name,
				PostCount: u.PostCount,
				Source:    snap.Source,
			})
			return
		}
	}
	writeError(w, apperror.NotFound("ranked user", id))
}

type rankedUserResponse struct {
	Rank      int            `json:"rank"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	PostCount int            `json:"postCount"`
	Source    service.Source `json:"source"`
}

// HandleClearCache removes the stored ranking and token so the next start
// recomputes. The page keeps showing what it has until then.
//
// HTTP: DELETE /api/cache → 204
func (h *AnalyticsHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(r.Context()); err != nil {
		h.logger.Error("clearing cache", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth is the liveness probe.
//
// HTTP: GET /healthz → {"status":"ok"}
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
