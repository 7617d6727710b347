package authkitpg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    github_id TEXT NOT NULL UNIQUE,
    created_at_unix BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_github_id ON users (github_id);
`)
	return err
}
