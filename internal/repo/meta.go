package meta

import (
	"context"
	"sort"
	"sync"

	"github.com/zata-zhangtao/transFileServer/internal/models"
)

// MemoryStore хранит метаданные только в оперативной памяти; удобно для тестов.
// После рестарта индекс восстанавливается из хранилища (Reconcile).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]models.StoredObject
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]models.StoredObject{}}
}

// Get возвращает метаданные объекта по id или ошибку, если объект не найден.
func (s *MemoryStore) Get(_ context.Context, id string) (models.StoredObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return models.StoredObject{}, models.ErrNotFound
	}
	return obj, nil
}

// Save записывает (или обновляет) метаданные объекта целиком.
func (s *MemoryStore) Save(_ context.Context, obj models.StoredObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.ID] = obj
	return nil
}

// List возвращает все объекты в порядке создания.
func (s *MemoryStore) List(_ context.Context) ([]models.StoredObject, error) {
	s.mu.RLock()
	out := make([]models.StoredObject, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, obj)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete удаляет запись.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.objects, id)
	return nil
}

// Close ничего не делает.
func (s *MemoryStore) Close() error {
	return nil
}
