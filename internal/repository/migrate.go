package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jmoiron/sqlx"
)

// MigrationFiles holds the alert engine schema. Every statement is
// idempotent, so Migrate can run on each start.
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS

// Migrate applies the embedded migrations in file name order.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	names, err := fs.Glob(MigrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := MigrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
