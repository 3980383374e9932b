package chunksvc

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zata-zhangtao/transFileServer/internal/models"
)

// merge склеивает части 0..total-1 по возрастанию индекса и публикует объект.
// Пропущенная часть — ErrMissingChunk, объект при этом не создаётся.
func (a *Assembler) merge(ctx context.Context, dir string, m sessionMeta, chunks map[int]int64) (models.StoredObject, error) {
	var size int64
	for idx := 0; idx < m.DeclaredTotal; idx++ {
		n, ok := chunks[idx]
		if !ok {
			return models.StoredObject{}, fmt.Errorf("%w: %w: upload %s chunk %d",
				models.ErrChunkUploadFailed, models.ErrMissingChunk, m.UploadID, idx)
		}
		size += n
	}

	pr, pw := io.Pipe()
	copied := make(chan error, 1)
	go func() {
		err := copyChunks(ctx, dir, m.DeclaredTotal, pw)
		_ = pw.CloseWithError(err)
		copied <- err
	}()

	obj, err := a.objects.PutWithID(ctx, m.UploadID, pr, size, m.DisplayName, models.KindFile)
	// хранилище могло не дочитать поток; закрываем, чтобы писатель завершился
	_ = pr.Close()
	copyErr := <-copied

	if err != nil {
		if copyErr != nil && copyErr != io.ErrClosedPipe {
			return models.StoredObject{}, uploadFailed(m.UploadID, copyErr)
		}
		return models.StoredObject{}, uploadFailed(m.UploadID, err)
	}

	return obj, nil
}

func copyChunks(ctx context.Context, dir string, total int, w io.Writer) error {
	for idx := 0; idx < total; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyChunk(chunkPath(dir, idx), w); err != nil {
			return err
		}
	}
	return nil
}

func copyChunk(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
