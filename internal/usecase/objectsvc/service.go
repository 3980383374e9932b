// Package objectsvc — хранилище завершённых объектов: байты лежат в blob.Store,
// явные метаданные (id, имя, размер, тип) — в индексе.
package objectsvc

import (
	"context"
	"io"
	"log/slog"

	"github.com/zata-zhangtao/transFileServer/internal/blob"
	"github.com/zata-zhangtao/transFileServer/internal/models"
)

type (
	// Index хранилище метаданных объектов
	Index interface {
		Save(ctx context.Context, obj models.StoredObject) error
		Get(ctx context.Context, id string) (models.StoredObject, error)
		List(ctx context.Context) ([]models.StoredObject, error)
		Delete(ctx context.Context, id string) error
	}

	// Service объединяет операции над завершёнными объектами.
	Service interface {
		Put(ctx context.Context, r io.Reader, size int64, displayName string, kind models.Kind) (models.StoredObject, error)
		PutText(ctx context.Context, text string) (models.StoredObject, error)
		PutWithID(ctx context.Context, id string, r io.Reader, size int64, displayName string, kind models.Kind) (models.StoredObject, error)
		List(ctx context.Context) ([]models.StoredObject, error)
		Resolve(ctx context.Context, id string) (models.StoredObject, error)
		Open(ctx context.Context, id string) (models.StoredObject, *blob.Reader, error)
		Delete(ctx context.Context, id string) error
		Reconcile(ctx context.Context) (ReconcileReport, error)
	}
)

type Deps struct {
	Blobs  blob.Store
	Index  Index
	Logger *slog.Logger
}

type Store struct {
	Deps
}

// New конструирует хранилище объектов с заданными зависимостями.
func New(deps Deps) *Store {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Store{Deps: deps}
}

var _ Service = (*Store)(nil)
