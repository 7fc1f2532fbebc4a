package database

import (
	"context"
	"fmt"

	"chat-broker/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS broker_sessions (
	conn_id         TEXT PRIMARY KEY,
	username        TEXT NOT NULL,
	connected_at    TIMESTAMPTZ NOT NULL,
	disconnected_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS broker_messages (
	id         TEXT PRIMARY KEY,
	channel    TEXT NOT NULL,
	username   TEXT NOT NULL,
	body       TEXT NOT NULL,
	sent_at    TIMESTAMPTZ NOT NULL,
	edited_at  TIMESTAMPTZ,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS broker_messages_channel_idx ON broker_messages (channel, sent_at);
`

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

// EnsureSchema creates the journal tables if they are missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}
