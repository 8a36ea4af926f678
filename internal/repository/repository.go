// Package repository defines the persistence interface used by the service
// layer. Concrete implementations live in subpackages (sqlite, memory, sealed).
package repository

import "context"

// Keys under which the analytics service persists its state.
const (
	KeyAccessToken = "accessToken"
	KeyTopUsers    = "topUsers"
)

// Store is a small string key/value store.
//
// Get returns an error wrapping apperror.ErrNotFound when the key is absent,
// so a cache miss is distinguishable from a storage failure. Delete of a
// missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
