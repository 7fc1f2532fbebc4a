package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the part of a pgx pool the journal writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
