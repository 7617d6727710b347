package authkit

import "context"

// User is an application account linked 1:1 to a GitHub identity.
type User struct {
	ID            string
	GitHubID      string
	CreatedAtUnix int64
}

// UserStore persists and retrieves application users keyed by GitHub identity.
type UserStore interface {
	// UpsertUser inserts or returns the user owning the GitHub identity.
	UpsertUser(ctx context.Context, gitHubID string) (User, error)
	// GetUser returns the user by application id, or ErrUserNotFound.
	GetUser(ctx context.Context, userID string) (*User, error)
}
