// Package ranking orders users by post count.
package ranking

import (
	"cmp"
	"slices"

	"github.com/sakif/social-analytics/internal/fetcher"
	"github.com/sakif/social-analytics/internal/model"
)

// TopN is how many users the dashboard shows.
const TopN = 5

// Top returns the n users with the most posts, highest first.
//
// The sort is stable, so users with equal counts keep their input order.
// fetcher.Fetch returns users in natural ID order, which makes the
// tie-break deterministic across runs. Users whose posts could not be
// fetched take part with a count of 0.
//
// The returned slice is freshly allocated; counts is not modified.
func Top(counts []fetcher.PostCount, n int) []model.RankedUser {
	ranked := make([]model.RankedUser, len(counts))
	for i, c := range counts {
		ranked[i] = model.RankedUser{ID: c.User.ID, Name: c.User.Name, PostCount: c.Count}
	}

	slices.SortStableFunc(ranked, func(a, b model.RankedUser) int {
		return cmp.Compare(b.PostCount, a.PostCount) // descending
	})

	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
