package helpers

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS users (
    id                         UUID PRIMARY KEY,
    device_id                  TEXT NOT NULL UNIQUE,
    username                   TEXT NOT NULL DEFAULT '',
    push_token                 TEXT NOT NULL DEFAULT '',
    notification_hour          INT NOT NULL DEFAULT 9 CHECK (notification_hour BETWEEN 0 AND 23),
    completed_skills           TEXT[] NOT NULL DEFAULT '{}',
    total_challenges_completed INT NOT NULL DEFAULT 0,
    streak_count               INT NOT NULL DEFAULT 0,
    last_activity_at           TIMESTAMPTZ,
    onboarding_completed       BOOLEAN NOT NULL DEFAULT FALSE,
    preferred_difficulty       TEXT NOT NULL DEFAULT 'medium',
    active_skill               TEXT,
    created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS challenges (
    id             UUID PRIMARY KEY,
    user_id        UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    skill_name     TEXT NOT NULL,
    day            INT NOT NULL CHECK (day BETWEEN 1 AND 7),
    challenge_text TEXT NOT NULL,
    is_completed   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at   TIMESTAMPTZ,
    UNIQUE (user_id, skill_name, day)
);
`

// SetupTestDB connects to the test database and makes sure the schema
// exists. Tests that need Postgres are skipped when neither
// TEST_DATABASE_URL nor DATABASE_URL is set.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if _, err := pool.Exec(ctx, testSchema); err != nil {
		t.Fatalf("Failed to apply test schema: %v", err)
	}

	return pool
}

// CleanupTestDB removes rows created by tests (device ids prefixed with
// "test-") and closes the pool.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE device_id LIKE 'test-%'"); err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	pool.Close()
}
