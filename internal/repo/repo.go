package meta

import (
	"context"

	"github.com/zata-zhangtao/transFileServer/internal/models"
)

// Repository — индекс метаданных объектов: явные поля id/имя/размер вместо
// разбора их из ключа хранилища.
type Repository interface {
	Save(ctx context.Context, obj models.StoredObject) error
	Get(ctx context.Context, id string) (models.StoredObject, error)
	List(ctx context.Context) ([]models.StoredObject, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
