// Package sealed wraps a repository.Store so values are encrypted at rest.
//
// The bearer token is a credential; anyone who can read the SQLite file
// could otherwise replay it. When STORE_SECRET is set, every value passes
// through NaCl secretbox (XSalsa20-Poly1305) before it reaches the inner
// store.
//
// STORED FORMAT:
//
//	base64( nonce[24] || secretbox(value) )
//
// A fresh random nonce is drawn for every Set, so writing the same value
// twice produces different ciphertexts.
package sealed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/sakif/social-analytics/internal/repository"
)

const nonceSize = 24

// ErrCorrupt is returned by Get when a stored value cannot be decoded or
// fails authentication (wrong secret, or the file was tampered with).
var ErrCorrupt = errors.New("sealed: stored value could not be opened")

var _ repository.Store = (*Store)(nil)

type Store struct {
	inner repository.Store
	key   [32]byte
}

// New derives a 32-byte key from secret with BLAKE2b-256 and returns a Store
// sealing values into inner. secret must not be empty.
func New(inner repository.Store, secret string) (*Store, error) {
	if secret == "" {
		return nil, fmt.Errorf("sealed: secret must not be empty")
	}
	return &Store{
		inner: inner,
		key:   blake2b.Sum256([]byte(secret)),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	stored, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}

	box, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: key %s", ErrCorrupt, key)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("%w: key %s", ErrCorrupt, key)
	}
	return string(plain), nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("sealed: generating nonce: %w", err)
	}

	// Seal appends to its first argument, so the nonce ends up as the prefix.
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(box))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
