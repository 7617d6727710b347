package authkit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStateStoreIssueAndConsume(t *testing.T) {
	t.Parallel()
	store := NewMemoryStateStore(2 * time.Minute).(*memoryStateStore)
	store.now = func() time.Time { return time.Unix(1000, 0) }

	token, err := store.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue state: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}

	if err := store.Consume(context.Background(), token); err != nil {
		t.Fatalf("consume state: %v", err)
	}

	if err := store.Consume(context.Background(), token); err != ErrStateNotFound {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	t.Parallel()
	store := NewMemoryStateStore(time.Minute).(*memoryStateStore)
	current := time.Unix(1000, 0)
	store.now = func() time.Time { return current }

	token, err := store.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue state: %v", err)
	}

	current = current.Add(2 * time.Minute)

	err = store.Consume(context.Background(), token)
	if err != ErrStateExpired {
		t.Fatalf("expected ErrStateExpired, got %v", err)
	}
}

func TestMemoryStateStorePurgesExpiredEntries(t *testing.T) {
	t.Parallel()
	store := NewMemoryStateStore(time.Minute).(*memoryStateStore)
	current := time.Unix(1000, 0)
	store.now = func() time.Time { return current }

	if _, err := store.Issue(context.Background()); err != nil {
		t.Fatalf("issue state: %v", err)
	}
	current = current.Add(5 * time.Minute)
	if _, err := store.Issue(context.Background()); err != nil {
		t.Fatalf("issue state: %v", err)
	}

	store.mutex.Lock()
	remaining := len(store.entries)
	store.mutex.Unlock()
	if remaining != 1 {
		t.Fatalf("expected expired entries to be purged, have %d", remaining)
	}
}
