package objectsvc

import (
	"context"
	"fmt"

	"github.com/zata-zhangtao/transFileServer/internal/models"
)

// ReconcileReport — итог сверки индекса с хранилищем.
type ReconcileReport struct {
	Indexed int
	Updated int
	Dropped int
	Skipped int
}

// Reconcile приводит индекс в соответствие с хранилищем: индексирует блобы без
// записи (id и имя восстанавливаются из ключа), обновляет размеры и удаляет
// записи без блоба.
func (s *Store) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	infos, err := s.Blobs.List(ctx, "")
	if err != nil {
		return report, fmt.Errorf("%w: scan: %w", models.ErrStorage, err)
	}
	records, err := s.Index.List(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: list index: %w", models.ErrStorage, err)
	}

	byID := make(map[string]models.StoredObject, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	present := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		id, name, kind, ok := SplitKey(info.Key)
		if !ok {
			s.Logger.WarnContext(ctx, "skipping unrecognized blob key", "key", info.Key)
			report.Skipped++
			continue
		}
		if _, dup := present[id]; dup {
			s.Logger.WarnContext(ctx, "duplicate object id in storage", "file_id", id, "key", info.Key)
			report.Skipped++
			continue
		}

		rec, known := byID[id]
		if known && rec.StorageKey != info.Key {
			// индекс указывает на другой ключ с тем же id; он проверяется ниже
			continue
		}
		present[id] = struct{}{}

		switch {
		case !known:
			rec = models.StoredObject{
				ID:          id,
				DisplayName: name,
				SizeBytes:   info.Size,
				Kind:        kind,
				StorageKey:  info.Key,
				CreatedAt:   info.ModTime.UTC(),
			}
			report.Indexed++
		case rec.SizeBytes != info.Size:
			rec.SizeBytes = info.Size
			report.Updated++
		default:
			continue
		}
		if err := s.Index.Save(ctx, rec); err != nil {
			return report, fmt.Errorf("%w: index %s: %w", models.ErrStorage, id, err)
		}
	}

	for _, rec := range records {
		if _, ok := present[rec.ID]; ok {
			continue
		}
		if err := s.Index.Delete(ctx, rec.ID); err != nil {
			return report, fmt.Errorf("%w: unindex %s: %w", models.ErrStorage, rec.ID, err)
		}
		report.Dropped++
	}

	s.Logger.InfoContext(ctx, "object index reconciled",
		"indexed", report.Indexed, "updated", report.Updated, "dropped", report.Dropped, "skipped", report.Skipped)
	return report, nil
}
