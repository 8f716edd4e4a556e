package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofinances/sessionkit/storage"
	"github.com/gofinances/sessionkit/storage/storagetest"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, prefix)
	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := newRedisStoreTest(t, "")
	storagetest.Run(t, store)
}

func TestRedisStorePrefixesKeys(t *testing.T) {
	store, mr := newRedisStoreTest(t, "device-7")
	ctx := context.Background()

	if err := store.Set(ctx, "@gofinances:user", []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := mr.Get("device-7:@gofinances:user")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != `{"id":"1"}` {
		t.Fatalf("unexpected raw value %q", got)
	}
	if mr.TTL("device-7:@gofinances:user") != 0 {
		t.Fatal("expected record without expiry")
	}
}

func TestRedisStoreWrapsBackendFailure(t *testing.T) {
	store, mr := newRedisStoreTest(t, "")
	mr.Close()

	_, err := store.Get(context.Background(), "k")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if errors.Is(err, storage.ErrNotFound) {
		t.Fatal("backend failure must not look like a missing key")
	}
}
