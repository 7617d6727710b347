package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryUserStoreUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryUserStore()
	first, err := store.UpsertUser(context.Background(), "gh1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == "" || first.GitHubID != "gh1" {
		t.Fatalf("unexpected user: %+v", first)
	}

	second, err := store.UpsertUser(context.Background(), "gh1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected stable id for same GitHub identity, got %s and %s", first.ID, second.ID)
	}

	other, err := store.UpsertUser(context.Background(), "gh2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("expected distinct ids for distinct identities")
	}
}

func TestMemoryUserStoreGetUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryUserStore()
	created, err := store.UpsertUser(context.Background(), "gh1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, getErr := store.GetUser(context.Background(), created.ID)
	if getErr != nil {
		t.Fatalf("unexpected error: %v", getErr)
	}
	if found.GitHubID != "gh1" {
		t.Fatalf("expected gh1, got %s", found.GitHubID)
	}

	if _, missErr := store.GetUser(context.Background(), "missing"); !errors.Is(missErr, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", missErr)
	}
}
