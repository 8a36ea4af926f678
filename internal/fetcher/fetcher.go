// Package fetcher retrieves the user directory and each user's post count.
//
// FAN-OUT WITH A BOUNDED POOL:
// One posts request per user, but never more than Workers in flight at once.
// errgroup.SetLimit provides the bound; every goroutine writes into its own
// slot of a pre-sized slice, so:
//   - no shared accumulator, no mutex
//   - the output order equals the input order, whatever order the
//     requests complete in
//
// g.Wait() is the join barrier: Fetch returns only after every request has
// resolved, successfully or not.
package fetcher

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/model"
)

// DefaultWorkers bounds concurrent posts requests when the caller passes 0.
const DefaultWorkers = 8

// API is the part of the evaluation service the fetcher needs.
type API interface {
	Users(ctx context.Context, token string) (map[string]string, error)
	Posts(ctx context.Context, token, userID string) ([]model.Post, error)
}

// PostCount is the per-user outcome of a fetch.
//
// Err non-nil means the posts request failed and Count is 0. That is a soft
// failure: the user still takes part in the ranking.
type PostCount struct {
	User  model.User
	Count int
	Err   error
}

// Failed reports whether this user's posts could not be fetched.
func (p PostCount) Failed() bool { return p.Err != nil }

type Fetcher struct {
	api     API
	workers int
	logger  *slog.Logger
}

// New creates a Fetcher. workers <= 0 selects DefaultWorkers.
func New(api API, workers int, logger *slog.Logger) *Fetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fetcher{api: api, workers: workers, logger: logger}
}

// Fetch loads the directory and then every user's posts.
//
// HARD vs SOFT FAILURES:
//   - directory request fails     → error, nothing else is fetched
//   - directory is empty          → apperror.ErrEmptyResult
//   - one user's posts request fails → PostCount{Count: 0, Err: err}; the
//     batch carries on
//
// A cancelled ctx makes the outstanding posts requests fail, which shows up
// as soft failures; Fetch then reports ctx.Err() so a shutdown is not
// mistaken for a finished ranking.
func (f *Fetcher) Fetch(ctx context.Context, token string) ([]PostCount, error) {
	directory, err := f.api.Users(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetcher: loading user directory: %w", err)
	}
	if len(directory) == 0 {
		return nil, apperror.EmptyResult("user directory")
	}

	users := SortedUsers(directory)
	results := make([]PostCount, len(users))

	var g errgroup.Group
	g.SetLimit(f.workers)

	for i, u := range users {
		i, u := i, u // per-iteration copies (go.mod targets go1.21 loop semantics)
		g.Go(func() error {
			posts, err := f.api.Posts(ctx, token, u.ID)
			if err != nil {
				results[i] = PostCount{User: u, Err: err}
				// Soft failure: returning nil keeps the group from recording it.
				return nil
			}
			results[i] = PostCount{User: u, Count: len(posts)}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	f.logger.Info("fetched post counts",
		slog.Int("users", len(results)),
		slog.Int("failed", failed),
		slog.Int("workers", f.workers),
	)

	return results, nil
}

// SortedUsers turns the directory map into a slice in natural ID order:
// IDs that are both integers compare numerically ("2" < "10"), everything
// else compares as strings, and integers sort before non-integers.
//
// Go map iteration order is random, so this is what makes a run's input
// order (and therefore the ranking's tie-break) reproducible.
func SortedUsers(directory map[string]string) []model.User {
	users := make([]model.User, 0, len(directory))
	for id, name := range directory {
		users = append(users, model.User{ID: id, Name: name})
	}
	slices.SortFunc(users, func(a, b model.User) int {
		return compareIDs(a.ID, b.ID)
	})
	return users
}

func compareIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		// "01" and "1" parse equal; fall back to the raw strings.
		return cmp.Compare(a, b)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
