package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/ngxlabs/ngx-agents/internal/profile"
	"github.com/ngxlabs/ngx-agents/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pgDB.SetMaxOpenConns(25)
	pgDB.SetMaxIdleConns(5)
	pgDB.SetConnMaxLifetime(30 * time.Minute)

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'conversation_session')",
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// migration statements are idempotent so startup can always run them.
// The vector extension backs the semantic routing cache; embedding dimension
// matches the default embedding model.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS conversation_session (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_session_user_id ON conversation_session (user_id)`,
	`CREATE TABLE IF NOT EXISTS session_turn (
		id BIGSERIAL PRIMARY KEY,
		session_uid TEXT NOT NULL REFERENCES conversation_session (uid) ON DELETE CASCADE,
		prompt TEXT NOT NULL,
		agent_ids TEXT[] NOT NULL DEFAULT '{}',
		response TEXT NOT NULL,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_turn_session_uid ON session_turn (session_uid)`,
	`CREATE TABLE IF NOT EXISTS routing_history (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		prompt TEXT NOT NULL,
		intent TEXT NOT NULL,
		method TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		agent_ids TEXT[] NOT NULL DEFAULT '{}',
		mode TEXT NOT NULL,
		embedding vector(1024),
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_routing_history_user_id ON routing_history (user_id)`,
}

func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to run migration: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
