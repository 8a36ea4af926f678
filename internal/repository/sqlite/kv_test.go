package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/repository"
)

// newTestDB opens a fresh in-memory database and closes it when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// =========================================================================
// GET / SET TESTS
// =========================================================================

func TestGet_MissingKey(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), repository.KeyTopUsers)
	if err == nil {
		t.Fatal("Get() should have returned an error for a missing key")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSetThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, repository.KeyAccessToken, "tok-123"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := db.Get(ctx, repository.KeyAccessToken)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "tok-123" {
		t.Errorf("Get() = %q, want %q", got, "tok-123")
	}
}

func TestSet_ReplacesExistingValue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, repository.KeyTopUsers, `[{"id":"1"}]`); err != nil {
		t.Fatalf("first Set() error = %v", err)
	}
	if err := db.Set(ctx, repository.KeyTopUsers, `[]`); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}

	got, err := db.Get(ctx, repository.KeyTopUsers)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != `[]` {
		t.Errorf("Get() = %q, want %q", got, `[]`)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, repository.KeyAccessToken, "tok"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := db.Delete(ctx, repository.KeyAccessToken); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.Get(ctx, repository.KeyAccessToken)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_MissingKeyIsNoop(t *testing.T) {
	db := newTestDB(t)

	if err := db.Delete(context.Background(), "never-set"); err != nil {
		t.Errorf("Delete() on missing key error = %v, want nil", err)
	}
}

// =========================================================================
// PERSISTENCE TESTS
// =========================================================================

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Set(ctx, repository.KeyAccessToken, "persisted"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	db.Close()

	// Reopening runs migrate() again; it must not wipe existing rows.
	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() on reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, repository.KeyAccessToken)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != "persisted" {
		t.Errorf("Get() after reopen = %q, want %q", got, "persisted")
	}
}
