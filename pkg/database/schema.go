package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_books_created_at ON books (created_at DESC, id DESC)`,
}

// EnsureSchema creates the books table and its index if they don't exist yet.
// It is safe to call on every startup.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema")
		}
	}
	return nil
}
