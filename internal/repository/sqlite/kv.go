package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/repository"
)

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// Get returns the value stored under key.
// A missing key is reported as apperror.ErrNotFound, not sql.ErrNoRows, so
// callers never need to import database/sql.
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("key", key)
		}
		return "", fmt.Errorf("sqlite: getting key %s: %w", key, err)
	}

	return value, nil
}

// Set inserts or replaces the value stored under key.
//
// INSERT ... ON CONFLICT DO UPDATE keeps the row (and its rowid) stable and
// only rewrites the value, which is exactly the replace-on-write semantics
// the cache needs.
func (db *DB) Set(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a key that does not exist is a no-op.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: deleting key %s: %w", key, err)
	}
	return nil
}
