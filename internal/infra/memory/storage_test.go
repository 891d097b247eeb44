package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-portal-client/internal/domain"
)

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	if _, err := store.Get(ctx, "user"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	value := []byte(`{"role":"user"}`)
	if err := store.Set(ctx, "user", value); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'x'

	got, err := store.Get(ctx, "user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"role":"user"}` {
		t.Fatalf("stored value aliased caller buffer: %s", got)
	}

	if err := store.Delete(ctx, "user"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "user"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected key removed, got %v", err)
	}
}
