package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL DEFAULT '',
		gender        TEXT NOT NULL DEFAULT '',
		country       TEXT NOT NULL DEFAULT '',
		is_premium    BOOLEAN NOT NULL DEFAULT FALSE,
		premium_until TIMESTAMPTZ,
		blocked_ids   TEXT[] NOT NULL DEFAULT '{}',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_premium ON users (is_premium) WHERE is_premium`,
}

// Migrate creates the tables the relay reads. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
