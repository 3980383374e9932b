package resthttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zata-zhangtao/transFileServer/internal/blob"
	"github.com/zata-zhangtao/transFileServer/internal/config"
	"github.com/zata-zhangtao/transFileServer/internal/models"
	meta "github.com/zata-zhangtao/transFileServer/internal/repo"
	"github.com/zata-zhangtao/transFileServer/internal/usecase/chunksvc"
	"github.com/zata-zhangtao/transFileServer/internal/usecase/objectsvc"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

const (
	// multipartMemory — сколько формы держим в памяти, остальное уходит во временные файлы.
	multipartMemory = 8 << 20
	manualGCTTL     = 24 * time.Hour
)

// ChunkService — операции chunked-загрузки, нужные HTTP-слою.
type ChunkService interface {
	SubmitChunk(ctx context.Context, req models.ChunkRequest) (models.ChunkStatus, error)
	QueryStatus(ctx context.Context, uploadID string) (models.UploadStatus, error)
	Sweep(ctx context.Context, ttl time.Duration) (int, error)
}

type Server struct {
	Objects objectsvc.Service
	Chunks  ChunkService
	Cfg     *config.Config
	Logger  *slog.Logger

	closer io.Closer
	stopGC func()
}

// NewServer собирает хранилище объектов и сборщик частей по конфигурации,
// сверяет индекс с хранилищем и возвращает готовый роутер.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, *Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob store: %w", err)
	}
	index, err := meta.Open(ctx, cfg.MetaDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open meta index: %w", err)
	}

	objects := objectsvc.New(objectsvc.Deps{
		Blobs:  blobs,
		Index:  index,
		Logger: logger.With("component", "objects"),
	})
	if _, err := objects.Reconcile(ctx); err != nil {
		_ = index.Close()
		return nil, nil, err
	}

	chunks, err := chunksvc.New(chunksvc.Deps{
		StagingDir: cfg.StagingDir,
		Objects:    objects,
		Logger:     logger.With("component", "chunks"),
	})
	if err != nil {
		_ = index.Close()
		return nil, nil, err
	}

	srv := &Server{
		Objects: objects,
		Chunks:  chunks,
		Cfg:     cfg,
		Logger:  logger,
		closer:  index,
		stopGC:  chunks.StartGC(cfg.GC.Interval, cfg.GC.TTL),
	}

	return srv.Routes(), srv, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case config.BackendS3:
		s3cfg := cfg.Blob.S3
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Prefix:    s3cfg.Prefix,
		})
	default:
		return blob.NewLocal(cfg.ObjectsDir)
	}
}

// Routes описывает REST API сервиса.
func (s *Server) Routes() http.Handler {
	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID)
	rtr.Use(middleware.Recoverer)
	rtr.Use(s.withRequestLogging)

	rtr.Post(transferproto.PathUpload, s.postUpload)
	rtr.Post(transferproto.PathUploadChunk, s.postUploadChunk)
	rtr.Get(transferproto.PathUploadStatus+"/{uploadID}", s.getUploadStatus)
	rtr.Get(transferproto.PathDownload+"/{id}", s.getDownload)
	rtr.Get(transferproto.PathFiles, s.getFiles)
	rtr.Delete(transferproto.PathDelete+"/{id}", s.deleteFile)
	rtr.Get(transferproto.PathHealth, s.getHealth)
	rtr.Post(transferproto.PathAdminGC, s.postGC)
	rtr.Get(transferproto.PathAdminConfig, s.getConfig)

	return rtr
}

// Close останавливает фоновый GC и закрывает индекс.
func (s *Server) Close() error {
	if s.stopGC != nil {
		s.stopGC()
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *Server) maxUploadBytes() int64 {
	if s.Cfg == nil || s.Cfg.MaxUploadBytes <= 0 {
		return config.Default().MaxUploadBytes
	}
	return s.Cfg.MaxUploadBytes
}

func (s *Server) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
