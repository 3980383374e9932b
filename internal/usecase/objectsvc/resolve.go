package objectsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zata-zhangtao/transFileServer/internal/blob"
	"github.com/zata-zhangtao/transFileServer/internal/models"
)

// List возвращает все объекты из индекса.
func (s *Store) List(ctx context.Context) ([]models.StoredObject, error) {
	objects, err := s.Index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", models.ErrStorage, err)
	}
	return objects, nil
}

// Resolve ищет объект по id: сначала в индексе, затем перебором ключей
// хранилища ("<id>.txt" или "<id>_..."). Найденный перебором объект
// добавляется в индекс.
func (s *Store) Resolve(ctx context.Context, id string) (models.StoredObject, error) {
	if id == "" {
		return models.StoredObject{}, models.ErrNotFound
	}

	obj, err := s.Index.Get(ctx, id)
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.StoredObject{}, fmt.Errorf("%w: lookup %s: %w", models.ErrStorage, id, err)
	}

	// все ключи объекта начинаются с id: "<id>.txt" или "<id>_<name>"
	infos, err := s.Blobs.List(ctx, id)
	if err != nil {
		return models.StoredObject{}, fmt.Errorf("%w: scan: %w", models.ErrStorage, err)
	}
	for _, info := range infos {
		if info.Key != TextName(id) && !strings.HasPrefix(info.Key, id+KeySeparator) {
			continue
		}
		keyID, name, kind, ok := SplitKey(info.Key)
		if !ok || keyID != id {
			continue
		}

		// первый найденный ключ выигрывает
		obj = models.StoredObject{
			ID:          id,
			DisplayName: name,
			SizeBytes:   info.Size,
			Kind:        kind,
			StorageKey:  info.Key,
			CreatedAt:   info.ModTime.UTC(),
		}
		if err := s.Index.Save(ctx, obj); err != nil {
			s.Logger.WarnContext(ctx, "reindex failed", "file_id", id, "error", err)
		}
		return obj, nil
	}

	return models.StoredObject{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
}

// Open отдаёт объект на чтение. Запись индекса без блоба удаляется.
func (s *Store) Open(ctx context.Context, id string) (models.StoredObject, *blob.Reader, error) {
	obj, err := s.Resolve(ctx, id)
	if err != nil {
		return models.StoredObject{}, nil, err
	}

	rd, err := s.Blobs.Open(ctx, obj.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			s.Logger.WarnContext(ctx, "dropping stale index record", "file_id", id, "key", obj.StorageKey)
			_ = s.Index.Delete(ctx, id)
			return models.StoredObject{}, nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
		}
		return models.StoredObject{}, nil, fmt.Errorf("%w: open %s: %w", models.ErrStorage, obj.StorageKey, err)
	}

	obj.SizeBytes = rd.Size
	return obj, rd, nil
}

// Delete удаляет блоб и запись индекса.
func (s *Store) Delete(ctx context.Context, id string) error {
	obj, err := s.Resolve(ctx, id)
	if err != nil {
		return err
	}

	if err := s.Blobs.Delete(ctx, obj.StorageKey); err != nil {
		return fmt.Errorf("%w: delete %s: %w", models.ErrStorage, obj.StorageKey, err)
	}
	if err := s.Index.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: unindex %s: %w", models.ErrStorage, id, err)
	}

	s.Logger.InfoContext(ctx, "object deleted", "file_id", id, "filename", obj.DisplayName)
	return nil
}
