package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gofinances/sessionkit/storage/storagetest"
)

func TestSQLiteStoreContract(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "session.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	storagetest.Run(t, store)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	storagetest.Run(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.sqlite")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(ctx, "@gofinances:user", []byte(`{"id":"2"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "@gofinances:user")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got) != `{"id":"2"}` {
		t.Fatalf("unexpected value after reopen: %q", got)
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for blank path")
	}
}
