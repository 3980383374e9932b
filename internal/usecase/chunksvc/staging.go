package chunksvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	chunkFilenameFormat = "chunk_%06d"
	chunkFilenamePrefix = "chunk_"
	metaFileName        = "meta.json"
	spoolDirName        = ".tmp"
)

// sessionMeta хранится в meta.json каталога загрузки.
type sessionMeta struct {
	UploadID      string    `json:"upload_id"`
	DisplayName   string    `json:"filename"`
	DeclaredTotal int       `json:"total_chunks"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (a *Assembler) sessionDir(uploadID string) string {
	return filepath.Join(a.root, uploadID)
}

func chunkPath(dir string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf(chunkFilenameFormat, idx))
}

// spool сохраняет тело части во временный файл вне каталога загрузки,
// чтобы медленный клиент не держал блокировку.
func (a *Assembler) spool(ctx context.Context, body io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	f, err := os.CreateTemp(filepath.Join(a.root, spoolDirName), "chunk-*")
	if err != nil {
		return "", 0, err
	}

	n, err := io.Copy(f, body)
	if err == nil {
		err = f.Close()
	} else {
		_ = f.Close()
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, err
	}

	return f.Name(), n, nil
}

func dirExists(path string) (bool, error) {
	fi, err := os.Stat(path)
	switch {
	case err == nil:
		return fi.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// writeMeta атомарно перезаписывает meta.json.
func writeMeta(dir string, m sessionMeta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(dir, metaFileName+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, metaFileName))
}

// readMeta читает meta.json; отсутствующий файл — os.ErrNotExist.
func readMeta(dir string) (sessionMeta, error) {
	var m sessionMeta

	b, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode %s: %w", metaFileName, err)
	}
	return m, nil
}

// scanChunks перечисляет сохранённые части: индекс -> размер.
func scanChunks(dir string) (map[int]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	chunks := make(map[int]int64, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		idx, ok := parseChunkName(e.Name())
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		chunks[idx] = fi.Size()
	}

	return chunks, nil
}

func parseChunkName(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, chunkFilenamePrefix)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(digits)
	if err != nil || idx < 0 || fmt.Sprintf(chunkFilenameFormat, idx) != name {
		return 0, false
	}
	return idx, true
}

// countReceived считает части с индексом из [0, total).
func countReceived(chunks map[int]int64, total int) int {
	n := 0
	for idx := range chunks {
		if idx < total {
			n++
		}
	}
	return n
}
