package meta

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type dialect string

const (
	dialectMemory   dialect = "memory"
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

const (
	sqliteBusyTimeoutMS = 5000
	connMaxLifetime     = 5 * time.Minute
)

func (d dialect) driverName() string {
	if d == dialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d dialect) gooseDialect() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

type dsnTarget struct {
	dialect dialect
	dsn     string
	// path — файл SQLite, если DSN задан как sqlite://<path>
	path string
}

// parseDSN определяет бэкенд по схеме:
//   - "" или memory:// — in-memory индекс;
//   - sqlite://<path> или file:<path> — SQLite;
//   - postgres:// или postgresql:// — PostgreSQL через pgx.
func parseDSN(raw string) (dsnTarget, error) {
	dsn := strings.TrimSpace(raw)
	switch {
	case dsn == "" || strings.HasPrefix(dsn, "memory://"):
		return dsnTarget{dialect: dialectMemory}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return dsnTarget{dialect: dialectPostgres, dsn: dsn}, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return dsnTarget{}, fmt.Errorf("sqlite path is empty")
		}
		return dsnTarget{dialect: dialectSQLite, dsn: path, path: path}, nil
	case strings.HasPrefix(dsn, "file:"):
		return dsnTarget{dialect: dialectSQLite, dsn: dsn}, nil
	default:
		return dsnTarget{}, fmt.Errorf("unsupported meta dsn %q", dsn)
	}
}

// Open открывает индекс метаданных по DSN и применяет миграции.
func Open(ctx context.Context, dsn string) (Repository, error) {
	target, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if target.dialect == dialectMemory {
		return NewMemoryStore(), nil
	}

	if target.path != "" {
		if err := os.MkdirAll(filepath.Dir(target.path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := openDB(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db, target.dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQLStore(db, target.dialect), nil
}

func openDB(ctx context.Context, target dsnTarget) (*sql.DB, error) {
	db, err := sql.Open(target.dialect.driverName(), target.dsn)
	if err != nil {
		return nil, err
	}

	if target.dialect == dialectSQLite {
		if err := configureSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func configureSQLite(ctx context.Context, db *sql.DB) error {
	// Один писатель: SQLite всё равно сериализует запись.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(connMaxLifetime)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", sqliteBusyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
