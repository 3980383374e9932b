package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const tmpDirName = ".tmp"

// Local хранит блобы файлами в одном плоском каталоге.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal создаёт хранилище поверх каталога root (вместе с каталогом для временных файлов).
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDirName), 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Root возвращает абсолютный путь каталога с объектами.
func (l *Local) Root() string {
	return l.root
}

// Put пишет данные во временный файл и переименовывает его в итоговый ключ.
func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dst, err := l.pathFromKey(key)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, tmpDirName), "put-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return 0, err
	}
	if size >= 0 && n != size {
		cleanup()
		return 0, fmt.Errorf("size mismatch: want %d, got %d", size, n)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	return n, nil
}

// Open открывает блоб на чтение.
func (l *Local) Open(ctx context.Context, key string) (*Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Reader{
		ReadSeekCloser: f,
		Info:           Info{Key: key, Size: fi.Size(), ModTime: fi.ModTime()},
	}, nil
}

// Delete удаляет блоб. Отсутствующий файл игнорируется.
func (l *Local) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List перечисляет обычные файлы корня, пропуская служебный каталог.
func (l *Local) List(ctx context.Context, prefix string) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		out = append(out, Info{Key: e.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}

	return out, nil
}

func (l *Local) pathFromKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if key == "." || key == ".." || key == tmpDirName || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(l.root, key), nil
}
