package authkitpg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rkarimov/ghauth/internal/authkit"
)

// PostgresUserStore persists application users in PostgreSQL via pgx.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore constructs a Postgres store.
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

// UpsertUser inserts or returns the user owning the GitHub identity.
func (store *PostgresUserStore) UpsertUser(ctx context.Context, gitHubID string) (authkit.User, error) {
	userID := uuid.NewString()
	createdAt := time.Now().UTC().Unix()
	row := store.pool.QueryRow(ctx, `
INSERT INTO users (user_id, github_id, created_at_unix)
VALUES ($1, $2, $3)
ON CONFLICT (github_id) DO UPDATE SET github_id = EXCLUDED.github_id
RETURNING user_id, github_id, created_at_unix
`, userID, gitHubID, createdAt)

	var user authkit.User
	if scanErr := row.Scan(&user.ID, &user.GitHubID, &user.CreatedAtUnix); scanErr != nil {
		return authkit.User{}, fmt.Errorf("user_store.upsert.pgx: %w", scanErr)
	}
	return user, nil
}

// GetUser returns the user by application id, or ErrUserNotFound.
func (store *PostgresUserStore) GetUser(ctx context.Context, userID string) (*authkit.User, error) {
	row := store.pool.QueryRow(ctx, `
SELECT user_id, github_id, created_at_unix
FROM users
WHERE user_id = $1
`, userID)

	var user authkit.User
	if scanErr := row.Scan(&user.ID, &user.GitHubID, &user.CreatedAtUnix); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user_store.get.pgx: %w", authkit.ErrUserNotFound)
		}
		return nil, fmt.Errorf("user_store.get.pgx: %w", scanErr)
	}
	return &user, nil
}
