// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gofinances/sessionkit/storage"
)

// Run exercises s against the [storage.Storage] contract. Each backend's
// tests call it with a fresh, empty store.
func Run(t *testing.T, s storage.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "contract:missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		want := []byte(`{"id":"1","name":"Ana","email":"ana@x.com"}`)
		if err := s.Set(ctx, "contract:user", want); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := s.Get(ctx, "contract:user")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		if err := s.Set(ctx, "contract:over", []byte("first")); err != nil {
			t.Fatalf("set first: %v", err)
		}
		if err := s.Set(ctx, "contract:over", []byte("second")); err != nil {
			t.Fatalf("set second: %v", err)
		}
		got, err := s.Get(ctx, "contract:over")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != "second" {
			t.Fatalf("expected last write to win, got %q", got)
		}
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		if err := s.Set(ctx, "contract:copy", []byte("abc")); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := s.Get(ctx, "contract:copy")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		got[0] = 'z'
		again, err := s.Get(ctx, "contract:copy")
		if err != nil {
			t.Fatalf("get again: %v", err)
		}
		if string(again) != "abc" {
			t.Fatalf("mutating a returned slice changed stored value: %q", again)
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		if err := s.Set(ctx, "contract:gone", []byte("x")); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Remove(ctx, "contract:gone"); err != nil {
			t.Fatalf("first remove: %v", err)
		}
		if err := s.Remove(ctx, "contract:gone"); err != nil {
			t.Fatalf("second remove: %v", err)
		}
		if _, err := s.Get(ctx, "contract:gone"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after remove, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.Set(cctx, "contract:canceled", []byte("x")); err == nil {
			t.Fatal("expected error for canceled context")
		}
	})
}
