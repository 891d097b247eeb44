package redis

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-portal-client/internal/domain"
)

func TestStorageSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewStorage(newClient(mr), "")

	if _, err := store.Get(ctx, "user"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := store.Set(ctx, "user", []byte(`{"role":"admin"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("quiz-portal:user") {
		t.Fatalf("expected redis key to be set")
	}
	if mr.TTL("quiz-portal:user") != 0 {
		t.Fatalf("principal must not expire")
	}

	got, err := store.Get(ctx, "user")
	if err != nil || string(got) != `{"role":"admin"}` {
		t.Fatalf("get: %q %v", got, err)
	}

	if err := store.Delete(ctx, "user"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("quiz-portal:user") {
		t.Fatalf("expected redis key to be removed")
	}
}
