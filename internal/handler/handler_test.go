package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/handler"
	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/service"
)

// mockService implements handler.AnalyticsService without a store or network.
type mockService struct {
	snap     service.Snapshot
	clearErr error
	cleared  int
}

func (m *mockService) Current() service.Snapshot { return m.snap }

func (m *mockService) ClearCache(ctx context.Context) error {
	m.cleared++
	return m.clearErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func rankedSnapshot() service.Snapshot {
	return service.Snapshot{
		Users: []model.RankedUser{
			{ID: "2", Name: "Bob", PostCount: 10},
			{ID: "1", Name: "Alice", PostCount: 3},
			{ID: "3", Name: "Carol", PostCount: 0},
		},
		Source:    service.SourceRemote,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		RunID:     "run-1",
	}
}

func newRouter(t *testing.T, svc handler.AnalyticsService) http.Handler {
	t.Helper()

	dash, err := handler.NewDashboardHandler(svc, testLogger())
	require.NoError(t, err)
	api := handler.NewAnalyticsHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Get("/", dash.HandleDashboard)
	r.Get("/healthz", handler.HandleHealth)
	r.Get("/api/top-users", api.HandleTopUsers)
	r.Get("/api/top-users/{id}", api.HandleTopUser)
	r.Delete("/api/cache", api.HandleClearCache)
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDashboard(t *testing.T) {
	t.Run("renders ranked users in order", func(t *testing.T) {
		rr := serve(newRouter(t, &mockService{snap: rankedSnapshot()}), http.MethodGet, "/")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

		body := rr.Body.String()
		assert.Contains(t, body, "<h1>Top Users</h1>")
		assert.Contains(t, body, "10 posts")
		assert.Contains(t, body, "0 posts")
		assert.NotContains(t, body, "No data available.")

		bob := strings.Index(body, "Bob")
		alice := strings.Index(body, "Alice")
		carol := strings.Index(body, "Carol")
		require.True(t, bob >= 0 && alice >= 0 && carol >= 0)
		assert.Less(t, bob, alice)
		assert.Less(t, alice, carol)
	})

	t.Run("placeholder when nothing is published", func(t *testing.T) {
		svc := &mockService{snap: service.Snapshot{Users: []model.RankedUser{}, Source: service.SourceNone}}
		rr := serve(newRouter(t, svc), http.MethodGet, "/")

		assert.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "Top Users")
		assert.Contains(t, body, "No data available.")
		assert.NotContains(t, body, "<li")
		assert.NotContains(t, body, "<footer>")
	})

	t.Run("user names are escaped", func(t *testing.T) {
		svc := &mockService{snap: service.Snapshot{
			Users:  []model.RankedUser{{ID: "9", Name: "<script>alert(1)</script>", PostCount: 1}},
			Source: service.SourceCache,
		}}
		rr := serve(newRouter(t, svc), http.MethodGet, "/")

		body := rr.Body.String()
		assert.NotContains(t, body, "<script>alert(1)</script>")
		assert.Contains(t, body, "&lt;script&gt;")
	})
}

func TestHandleTopUsers(t *testing.T) {
	rr := serve(newRouter(t, &mockService{snap: rankedSnapshot()}), http.MethodGet, "/api/top-users")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got service.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, rankedSnapshot().Users, got.Users)
	assert.Equal(t, service.SourceRemote, got.Source)
	assert.Equal(t, "run-1", got.RunID)
}

func TestHandleTopUsers_EmptyIsArray(t *testing.T) {
	svc := &mockService{snap: service.Snapshot{Users: []model.RankedUser{}, Source: service.SourceNone}}
	rr := serve(newRouter(t, svc), http.MethodGet, "/api/top-users")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"users":[]`)
	assert.Contains(t, rr.Body.String(), `"source":"none"`)
}

func TestHandleTopUser(t *testing.T) {
	h := newRouter(t, &mockService{snap: rankedSnapshot()})

	t.Run("found", func(t *testing.T) {
		rr := serve(h, http.MethodGet, "/api/top-users/1")
		assert.Equal(t, http.StatusOK, rr.Code)

		var got map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, float64(2), got["rank"])
		assert.Equal(t, "Alice", got["name"])
		assert.Equal(t, float64(3), got["postCount"])
	})

	t.Run("not in the top list", func(t *testing.T) {
		rr := serve(h, http.MethodGet, "/api/top-users/42")
		assert.Equal(t, http.StatusNotFound, rr.Code)

		var got handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "not_found", got.Error)
		assert.Contains(t, got.Message, "42")
	})
}

func TestHandleClearCache(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "success", wantStatus: http.StatusNoContent},
		{
			name:       "store reports a typed failure",
			err:        fmt.Errorf("service/analytics: clearing topUsers: %w", apperror.NotFound("key", "topUsers")),
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "untyped failure is hidden",
			err:        errors.New("disk I/O error at /var/lib/analytics.db"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{snap: rankedSnapshot(), clearErr: tt.err}
			rr := serve(newRouter(t, svc), http.MethodDelete, "/api/cache")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, 1, svc.cleared)

			if tt.wantType != "" {
				var got handler.ErrorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, tt.wantType, got.Error)
				assert.NotContains(t, got.Message, "/var/lib")
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	rr := serve(newRouter(t, &mockService{}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
