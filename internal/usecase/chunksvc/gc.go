package chunksvc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sweep удаляет загрузки, которые не обновлялись дольше ttl, и забытые файлы спула.
// Возвращает число удалённых загрузок.
func (a *Assembler) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	now := time.Now()
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.IsDir() {
			continue
		}
		if e.Name() == spoolDirName {
			a.sweepSpool(now, ttl)
			continue
		}

		ok, err := a.sweepSession(e.Name(), now, ttl)
		if err != nil {
			a.logger.WarnContext(ctx, "gc: session sweep failed", "upload_id", e.Name(), "error", err)
			continue
		}
		if ok {
			removed++
			a.logger.InfoContext(ctx, "gc: stale upload removed", "upload_id", e.Name())
		}
	}

	return removed, nil
}

func (a *Assembler) sweepSession(uploadID string, now time.Time, ttl time.Duration) (bool, error) {
	// активная загрузка держит блокировку, такие каталоги пропускаем
	unlock, ok := a.locks.TryLock(uploadID)
	if !ok {
		return false, nil
	}
	defer unlock()

	dir := a.sessionDir(uploadID)
	fi, err := os.Stat(filepath.Join(dir, metaFileName))
	if errors.Is(err, os.ErrNotExist) {
		// meta.json ещё не записан: ориентируемся на сам каталог
		fi, err = os.Stat(dir)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if now.Sub(fi.ModTime()) < ttl {
		return false, nil
	}
	return true, os.RemoveAll(dir)
}

func (a *Assembler) sweepSpool(now time.Time, ttl time.Duration) {
	dir := filepath.Join(a.root, spoolDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil || now.Sub(fi.ModTime()) < ttl {
			continue
		}
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
}

// StartGC стартует периодическую очистку staging-каталога.
func (a *Assembler) StartGC(every, ttl time.Duration) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(every)
	var once sync.Once
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := a.Sweep(ctx, ttl); err != nil && ctx.Err() == nil {
					a.logger.Error("gc: sweep failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		once.Do(cancel)
	}
}
