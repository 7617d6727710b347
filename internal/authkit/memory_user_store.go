package authkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-memory store intended for tests and dev runs.
type MemoryUserStore struct {
	mutex      sync.Mutex
	byID       map[string]*User
	byGitHubID map[string]string
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:       make(map[string]*User),
		byGitHubID: make(map[string]string),
	}
}

// UpsertUser inserts or returns the user owning the GitHub identity.
func (store *MemoryUserStore) UpsertUser(ctx context.Context, gitHubID string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if userID, ok := store.byGitHubID[gitHubID]; ok {
		return *store.byID[userID], nil
	}
	record := &User{
		ID:            uuid.NewString(),
		GitHubID:      gitHubID,
		CreatedAtUnix: time.Now().UTC().Unix(),
	}
	store.byID[record.ID] = record
	store.byGitHubID[gitHubID] = record.ID
	return *record, nil
}

// GetUser returns the user by application id, or ErrUserNotFound.
func (store *MemoryUserStore) GetUser(ctx context.Context, userID string) (*User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record, ok := store.byID[userID]
	if !ok {
		return nil, fmt.Errorf("user_store.get: %w", ErrUserNotFound)
	}
	clone := *record
	return &clone, nil
}
