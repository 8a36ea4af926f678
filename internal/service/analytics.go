// Package service contains the business logic layer of the application.
//
// THE LAYERS:
//
//	Handler (HTTP) / CLI  → reads the current snapshot, triggers a run
//	AnalyticsService      → cache check, login, fetch, rank, persist
//	evalapi / repository  → remote API and local key/value store
//
// The service knows nothing about HTTP or SQL. Every collaborator is an
// interface, so tests wire fakes and the CLI can swap the SQLite store for
// an in-memory one.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/fetcher"
	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/ranking"
	"github.com/sakif/social-analytics/internal/repository"
)

// Source says where the currently displayed ranking came from.
type Source string

const (
	SourceNone   Source = "none"   // nothing computed or loaded yet
	SourceCache  Source = "cache"  // loaded from the "topUsers" key
	SourceRemote Source = "remote" // computed from the evaluation API
)

// Snapshot is the state the presentation layer renders. It is replaced
// wholesale on every publish and never mutated.
type Snapshot struct {
	Users     []model.RankedUser `json:"users"`
	Source    Source             `json:"source"`
	UpdatedAt time.Time          `json:"updatedAt"`
	RunID     string             `json:"runId,omitempty"`
}

// Authenticator obtains a bearer token. *auth.Authenticator satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (string, error)
}

// PostFetcher loads per-user post counts. *fetcher.Fetcher satisfies it.
type PostFetcher interface {
	Fetch(ctx context.Context, token string) ([]fetcher.PostCount, error)
}

// AnalyticsService runs the dashboard's initialization sequence and holds
// the result for readers.
//
// CONCURRENCY:
// Initialize is serialised by runMu so two overlapping runs cannot both
// register. HTTP handlers read the snapshot under mu while a run may be in
// progress in another goroutine.
type AnalyticsService struct {
	creds  model.Credentials
	store  repository.Store
	auth   Authenticator
	posts  PostFetcher
	logger *slog.Logger

	runMu sync.Mutex

	mu      sync.RWMutex
	current Snapshot
}

func NewAnalyticsService(
	creds model.Credentials,
	store repository.Store,
	auth Authenticator,
	posts PostFetcher,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		creds:   creds,
		store:   store,
		auth:    auth,
		posts:   posts,
		logger:  logger,
		current: Snapshot{Users: []model.RankedUser{}, Source: SourceNone},
	}
}

// Initialize produces the ranking.
//
// SEQUENCE:
//  1. If "topUsers" is stored, publish it and return. No network call is
//     made, not even to re-authenticate. The cached value is never refreshed.
//  2. Use the stored "accessToken", or register + authenticate and store the
//     new token.
//  3. Fetch the directory and every user's post count.
//  4. Rank, keep the top five, store them under "topUsers", publish.
//
// Any error in steps 2–3 aborts the run and leaves the published snapshot
// unchanged; callers log it and the page keeps showing its placeholder.
// Per-user posts failures are not errors here: those users rank with 0.
func (s *AnalyticsService) Initialize(ctx context.Context) (Snapshot, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	runID := xid.New().String()
	logger := s.logger.With(slog.String("run", runID))

	// --- Step 1: one-shot cache ---
	cached, err := s.loadCachedRanking(ctx)
	switch {
	case err == nil:
		logger.Info("using cached ranking", slog.Int("users", len(cached)))
		return s.publish(Snapshot{Users: cached, Source: SourceCache, UpdatedAt: time.Now(), RunID: runID}), nil
	case errors.Is(err, apperror.ErrNotFound):
		// nothing cached yet
	default:
		logger.Warn("cached ranking unreadable, recomputing", slog.String("error", err.Error()))
	}

	// --- Step 2: token ---
	token, err := s.token(ctx, logger)
	if err != nil {
		return s.Current(), fmt.Errorf("service/analytics: %w", err)
	}

	// --- Step 3: fetch ---
	counts, err := s.posts.Fetch(ctx, token)
	if err != nil {
		return s.Current(), fmt.Errorf("service/analytics: %w", err)
	}

	// --- Step 4: rank + persist ---
	top := ranking.Top(counts, ranking.TopN)

	if encoded, err := json.Marshal(top); err != nil {
		logger.Error("encoding ranking for cache", slog.String("error", err.Error()))
	} else if err := s.store.Set(ctx, repository.KeyTopUsers, string(encoded)); err != nil {
		// The ranking is still shown; it just gets recomputed next start.
		logger.Error("caching ranking", slog.String("error", err.Error()))
	}

	logger.Info("ranking computed",
		slog.Int("users", len(counts)),
		slog.Int("shown", len(top)),
	)
	return s.publish(Snapshot{Users: top, Source: SourceRemote, UpdatedAt: time.Now(), RunID: runID}), nil
}

// Current returns the most recently published snapshot. The Users slice is a
// copy; callers may keep it.
func (s *AnalyticsService) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.current
	snap.Users = append([]model.RankedUser(nil), s.current.Users...)
	if snap.Users == nil {
		snap.Users = []model.RankedUser{}
	}
	return snap
}

// StoredToken returns the persisted bearer token, or an error wrapping
// apperror.ErrNotFound if none is stored.
func (s *AnalyticsService) StoredToken(ctx context.Context) (string, error) {
	return s.store.Get(ctx, repository.KeyAccessToken)
}

// ClearCache removes the stored ranking and token. It plays the part of the
// external actor clearing storage: the published snapshot is left alone, and
// the next Initialize starts from scratch.
func (s *AnalyticsService) ClearCache(ctx context.Context) error {
	for _, key := range []string{repository.KeyTopUsers, repository.KeyAccessToken} {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("service/analytics: clearing %s: %w", key, err)
		}
	}
	s.logger.Info("cache cleared")
	return nil
}

// token returns the stored token, or logs in and stores a new one.
//
// The new token is stored as soon as it is obtained, before any user data is
// fetched, so a later failure does not force a second registration.
func (s *AnalyticsService) token(ctx context.Context, logger *slog.Logger) (string, error) {
	token, err := s.store.Get(ctx, repository.KeyAccessToken)
	switch {
	case err == nil && token != "":
		logger.Info("using cached token from storage")
		return token, nil
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		logger.Warn("stored token unreadable, logging in again", slog.String("error", err.Error()))
	}

	token, err = s.auth.Login(ctx, s.creds)
	if err != nil {
		return "", err
	}

	if err := s.store.Set(ctx, repository.KeyAccessToken, token); err != nil {
		logger.Error("storing access token", slog.String("error", err.Error()))
	}
	return token, nil
}

func (s *AnalyticsService) loadCachedRanking(ctx context.Context) ([]model.RankedUser, error) {
	raw, err := s.store.Get(ctx, repository.KeyTopUsers)
	if err != nil {
		return nil, err
	}

	var users []model.RankedUser
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decoding cached ranking: %w", err)
	}
	if users == nil {
		users = []model.RankedUser{}
	}
	return users, nil
}

func (s *AnalyticsService) publish(snap Snapshot) Snapshot {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return s.Current()
}
