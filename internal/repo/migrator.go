package meta

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// goose держит диалект и FS в глобальных переменных.
var gooseMu sync.Mutex

// ApplyMigrations запускает goose-миграции для DSN; для memory:// ничего не делает.
func ApplyMigrations(ctx context.Context, dsn string) error {
	target, err := parseDSN(dsn)
	if err != nil {
		return err
	}
	if target.dialect == dialectMemory {
		return nil
	}

	db, err := openDB(ctx, target)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrate(ctx, db, target.dialect)
}

func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(d.gooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
