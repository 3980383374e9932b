package objectsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zata-zhangtao/transFileServer/internal/models"
)

// Put сохраняет содержимое под свежим идентификатором.
func (s *Store) Put(ctx context.Context, r io.Reader, size int64, displayName string, kind models.Kind) (models.StoredObject, error) {
	return s.put(ctx, uuid.NewString(), r, size, displayName, kind)
}

// PutText сохраняет текст; имя объекта сервер выбирает сам: "<id>.txt".
func (s *Store) PutText(ctx context.Context, text string) (models.StoredObject, error) {
	return s.put(ctx, uuid.NewString(), strings.NewReader(text), int64(len(text)), "", models.KindText)
}

// PutWithID сохраняет объект под заданным id (склейка chunked-загрузки
// публикуется под uploadId). Занятый id — ErrAlreadyExists.
func (s *Store) PutWithID(ctx context.Context, id string, r io.Reader, size int64, displayName string, kind models.Kind) (models.StoredObject, error) {
	if err := validateID(id); err != nil {
		return models.StoredObject{}, err
	}

	_, err := s.Resolve(ctx, id)
	switch {
	case err == nil:
		return models.StoredObject{}, fmt.Errorf("%w: %s", models.ErrAlreadyExists, id)
	case !errors.Is(err, models.ErrNotFound):
		return models.StoredObject{}, err
	}

	return s.put(ctx, id, r, size, displayName, kind)
}

func (s *Store) put(ctx context.Context, id string, r io.Reader, size int64, displayName string, kind models.Kind) (models.StoredObject, error) {
	if !kind.Valid() {
		return models.StoredObject{}, fmt.Errorf("%w: unknown object kind %q", models.ErrBadRequest, kind)
	}

	name := TextName(id)
	if kind == models.KindFile {
		var err error
		if name, err = SanitizeName(displayName); err != nil {
			return models.StoredObject{}, err
		}
	}

	key := EncodeKey(id, name, kind)
	n, err := s.Blobs.Put(ctx, key, r, size)
	if err != nil {
		return models.StoredObject{}, fmt.Errorf("%w: write %s: %w", models.ErrStorage, key, err)
	}

	obj := models.StoredObject{
		ID:          id,
		DisplayName: name,
		SizeBytes:   n,
		Kind:        kind,
		StorageKey:  key,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Index.Save(ctx, obj); err != nil {
		// без записи в индексе объект недостижим — откатываем блоб
		_ = s.Blobs.Delete(ctx, key)
		return models.StoredObject{}, fmt.Errorf("%w: index %s: %w", models.ErrStorage, id, err)
	}

	s.Logger.InfoContext(ctx, "object stored", "file_id", id, "filename", name, "kind", kind, "size", n)
	return obj, nil
}
