// Package chunksvc собирает объекты из частей, присланных в произвольном
// порядке. Части копятся в staging-каталоге загрузки и после прихода последней
// склеиваются в один объект хранилища.
package chunksvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zata-zhangtao/transFileServer/internal/models"
	"github.com/zata-zhangtao/transFileServer/internal/usecase/objectsvc"
)

const MaxDeclaredTotal = 999999

var uploadIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.-]{0,127}$`)

// Objects — часть хранилища объектов, нужная сборщику.
type Objects interface {
	PutWithID(ctx context.Context, id string, r io.Reader, size int64, displayName string, kind models.Kind) (models.StoredObject, error)
	Resolve(ctx context.Context, id string) (models.StoredObject, error)
}

type Deps struct {
	StagingDir string
	Objects    Objects
	Logger     *slog.Logger
}

type Assembler struct {
	root    string
	objects Objects
	locks   *keyedMutex
	logger  *slog.Logger
}

// New готовит staging-каталог и каталог для спула частей.
func New(deps Deps) (*Assembler, error) {
	root := strings.TrimSpace(deps.StagingDir)
	if root == "" {
		return nil, errors.New("staging dir is required")
	}
	if deps.Objects == nil {
		return nil, errors.New("object store is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, spoolDirName), 0o755); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Assembler{
		root:    abs,
		objects: deps.Objects,
		locks:   newKeyedMutex(),
		logger:  logger,
	}, nil
}

// ValidUploadID сообщает, можно ли использовать id как имя staging-каталога и id объекта.
func ValidUploadID(id string) bool {
	return uploadIDPattern.MatchString(id)
}

func validateChunk(req models.ChunkRequest) error {
	switch {
	case !ValidUploadID(req.UploadID):
		return fmt.Errorf("%w: invalid upload id %q", models.ErrBadRequest, req.UploadID)
	case req.DeclaredTotal <= 0 || req.DeclaredTotal > MaxDeclaredTotal:
		return fmt.Errorf("%w: total_chunks must be in [1, %d]", models.ErrBadRequest, MaxDeclaredTotal)
	case req.Index < 0 || req.Index >= req.DeclaredTotal:
		return fmt.Errorf("%w: chunk_index %d out of range [0, %d)", models.ErrBadRequest, req.Index, req.DeclaredTotal)
	case strings.TrimSpace(req.DisplayName) == "":
		return fmt.Errorf("%w: filename is required", models.ErrBadRequest)
	case req.Body == nil:
		return fmt.Errorf("%w: chunk body is required", models.ErrBadRequest)
	}
	return nil
}

func uploadFailed(uploadID string, err error) error {
	return fmt.Errorf("%w: upload %s: %w", models.ErrChunkUploadFailed, uploadID, err)
}

// SubmitChunk принимает одну часть. Повторная отправка той же части
// перезаписывает её. Когда получены все части, объект склеивается и
// публикуется под id загрузки.
func (a *Assembler) SubmitChunk(ctx context.Context, req models.ChunkRequest) (models.ChunkStatus, error) {
	if err := validateChunk(req); err != nil {
		return models.ChunkStatus{}, err
	}
	name, err := objectsvc.SanitizeName(req.DisplayName)
	if err != nil {
		return models.ChunkStatus{}, err
	}

	spooled, _, err := a.spool(ctx, req.Body)
	if err != nil {
		return models.ChunkStatus{}, uploadFailed(req.UploadID, err)
	}
	// после успешного rename файла уже нет
	defer func() { _ = os.Remove(spooled) }()

	unlock := a.locks.Lock(req.UploadID)
	defer unlock()

	status := models.ChunkStatus{
		UploadID:      req.UploadID,
		DisplayName:   name,
		Kind:          models.KindFile,
		Status:        models.StateUploading,
		DeclaredTotal: req.DeclaredTotal,
	}

	dir := a.sessionDir(req.UploadID)
	exists, err := dirExists(dir)
	if err != nil {
		return models.ChunkStatus{}, uploadFailed(req.UploadID, err)
	}

	m := sessionMeta{UploadID: req.UploadID, CreatedAt: time.Now().UTC()}
	if !exists {
		obj, err := a.objects.Resolve(ctx, req.UploadID)
		switch {
		case err == nil:
			// запоздалый повтор уже собранной загрузки
			status.DisplayName = obj.DisplayName
			status.Status = models.StateCompleted
			status.ReceivedCount = req.DeclaredTotal
			return status, nil
		case !errors.Is(err, models.ErrNotFound):
			return models.ChunkStatus{}, uploadFailed(req.UploadID, err)
		}
		if err := os.Mkdir(dir, 0o755); err != nil {
			return models.ChunkStatus{}, uploadFailed(req.UploadID, err)
		}
	} else if prev, err := readMeta(dir); err == nil {
		m.CreatedAt = prev.CreatedAt
	}

	if err := os.Rename(spooled, chunkPath(dir, req.Index)); err != nil {
		return models.ChunkStatus{}, uploadFailed(req.UploadID, err)
	}

	m.DisplayName = name
	m.DeclaredTotal = req.DeclaredTotal
	m.UpdatedAt = time.Now().UTC()
	if err := writeMeta(dir, m); err != nil {
		return models.ChunkStatus{}, uploadFailed(req.UploadID, err)
	}

	chunks, err := scanChunks(dir)
	if err != nil {
		return models.ChunkStatus{}, uploadFailed(req.UploadID, err)
	}
	status.ReceivedCount = countReceived(chunks, req.DeclaredTotal)

	a.logger.DebugContext(ctx, "chunk stored",
		"upload_id", req.UploadID, "chunk_index", req.Index,
		"received", status.ReceivedCount, "total", req.DeclaredTotal)

	if status.ReceivedCount < req.DeclaredTotal {
		return status, nil
	}

	// последняя часть уже записана: обрыв соединения не должен прерывать склейку
	obj, err := a.merge(context.WithoutCancel(ctx), dir, m, chunks)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrAlreadyExists):
		// объект уже опубликован, но staging не был удалён
		a.logger.WarnContext(ctx, "object already merged, dropping staging", "upload_id", req.UploadID)
	default:
		return models.ChunkStatus{}, err
	}

	if err := os.RemoveAll(dir); err != nil {
		a.logger.WarnContext(ctx, "staging cleanup failed", "upload_id", req.UploadID, "error", err)
	}

	if obj.ID != "" {
		a.logger.InfoContext(ctx, "upload merged",
			"upload_id", req.UploadID, "filename", obj.DisplayName, "size", obj.SizeBytes, "chunks", req.DeclaredTotal)
	}

	status.Status = models.StateCompleted
	return status, nil
}

// QueryStatus сообщает состояние загрузки; неизвестный id — not_found, без ошибки.
func (a *Assembler) QueryStatus(ctx context.Context, uploadID string) (models.UploadStatus, error) {
	if !ValidUploadID(uploadID) {
		return models.UploadStatus{Status: models.StateNotFound}, nil
	}

	unlock := a.locks.Lock(uploadID)
	defer unlock()

	dir := a.sessionDir(uploadID)
	exists, err := dirExists(dir)
	if err != nil {
		return models.UploadStatus{}, fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
	if exists {
		chunks, err := scanChunks(dir)
		if err != nil {
			return models.UploadStatus{}, fmt.Errorf("%w: %w", models.ErrStorage, err)
		}
		received := len(chunks)
		if m, err := readMeta(dir); err == nil {
			received = countReceived(chunks, m.DeclaredTotal)
		}
		return models.UploadStatus{Status: models.StateUploading, ReceivedCount: &received}, nil
	}

	_, err = a.objects.Resolve(ctx, uploadID)
	switch {
	case err == nil:
		return models.UploadStatus{Status: models.StateCompleted, ObjectExists: true}, nil
	case errors.Is(err, models.ErrNotFound):
		return models.UploadStatus{Status: models.StateNotFound}, nil
	default:
		return models.UploadStatus{}, err
	}
}
