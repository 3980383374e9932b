package meta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/zata-zhangtao/transFileServer/internal/models"
)

const objectsTable = "objects"

var objectColumns = []string{"id", "display_name", "kind", "size_bytes", "storage_key", "created_at"}

// SQLStore сохраняет метаданные в SQLite или Postgres через database/sql.
type SQLStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ Repository = (*SQLStore)(nil)

// NewSQLStore оборачивает открытое соединение; плейсхолдеры зависят от диалекта.
func NewSQLStore(db *sql.DB, d dialect) *SQLStore {
	var ph sq.PlaceholderFormat = sq.Question
	if d == dialectPostgres {
		ph = sq.Dollar
	}
	return &SQLStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(ph),
	}
}

// Save записывает (или обновляет) описание объекта.
func (s *SQLStore) Save(ctx context.Context, obj models.StoredObject) error {
	if strings.TrimSpace(obj.ID) == "" {
		return fmt.Errorf("object id is empty")
	}

	sqlStr, args, err := s.sb.
		Insert(objectsTable).
		Columns(objectColumns...).
		Values(obj.ID, obj.DisplayName, string(obj.Kind), obj.SizeBytes, obj.StorageKey, obj.CreatedAt.UnixMilli()).
		Suffix(`
ON CONFLICT (id) DO UPDATE
SET display_name = EXCLUDED.display_name,
	kind         = EXCLUDED.kind,
	size_bytes   = EXCLUDED.size_bytes,
	storage_key  = EXCLUDED.storage_key,
	created_at   = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert sql: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}
	return nil
}

// Get возвращает описание объекта по его идентификатору.
func (s *SQLStore) Get(ctx context.Context, id string) (models.StoredObject, error) {
	sqlStr, args, err := s.sb.
		Select(objectColumns...).
		From(objectsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return models.StoredObject{}, fmt.Errorf("build select: %w", err)
	}

	obj, err := scanObject(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StoredObject{}, models.ErrNotFound
		}
		return models.StoredObject{}, fmt.Errorf("scan object row: %w", err)
	}
	return obj, nil
}

// List возвращает все объекты в порядке создания.
func (s *SQLStore) List(ctx context.Context) ([]models.StoredObject, error) {
	sqlStr, args, err := s.sb.
		Select(objectColumns...).
		From(objectsTable).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	out := []models.StoredObject{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

// Delete удаляет запись; отсутствие строки — ErrNotFound.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := s.sb.
		Delete(objectsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("exec delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Close освобождает соединения пула.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (models.StoredObject, error) {
	var (
		obj       models.StoredObject
		kind      string
		createdAt int64
	)
	if err := row.Scan(&obj.ID, &obj.DisplayName, &kind, &obj.SizeBytes, &obj.StorageKey, &createdAt); err != nil {
		return models.StoredObject{}, err
	}
	obj.Kind = models.Kind(kind)
	obj.CreatedAt = time.UnixMilli(createdAt).UTC()
	return obj, nil
}
