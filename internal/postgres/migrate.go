package postgres

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/studyroom/internal/postgres/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate runs a goose command (up, down, status, ...) with the embedded
// migrations.
func Migrate(ctx context.Context, dsn, command string, args ...string) error {
	goose.SetBaseFS(migrations.FS)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose: open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
