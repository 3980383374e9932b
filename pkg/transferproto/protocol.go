// Package transferproto описывает HTTP-протокол файлового сервиса: пути,
// поля форм и тела JSON-ответов. Используется сервером и клиентом.
package transferproto

import "time"

// Пути REST API.
const (
	PathUpload       = "/upload"
	PathUploadChunk  = "/upload-chunk"
	PathUploadStatus = "/upload-status"
	PathDownload     = "/download"
	PathFiles        = "/files"
	PathDelete       = "/delete"
	PathHealth       = "/healthz"
	PathAdminGC      = "/admin/gc"
	PathAdminConfig  = "/admin/config"
)

// Поля multipart-форм.
const (
	FieldFile        = "file"
	FieldText        = "text"
	FieldUploadID    = "upload_id"
	FieldFileID      = "file_id"
	FieldChunkIndex  = "chunk_index"
	FieldTotalChunks = "total_chunks"
	FieldFilename    = "filename"
	FieldChunk       = "chunk"
)

// DefaultChunkSize — размер части, которым режет файлы клиент.
const DefaultChunkSize = 5 << 20

type UploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

type ChunkResponse struct {
	FileID         string `json:"file_id"`
	Filename       string `json:"filename"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	ReceivedChunks int    `json:"received_chunks"`
	TotalChunks    int    `json:"total_chunks"`
}

// StatusResponse — состояние chunked-загрузки. ReceivedChunks есть только у незавершённых.
type StatusResponse struct {
	Status         string `json:"status"`
	ReceivedChunks *int   `json:"received_chunks,omitempty"`
	FileExists     bool   `json:"file_exists"`
}

type FileInfo struct {
	FileID    string    `json:"file_id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type ListResponse struct {
	Files []FileInfo `json:"files"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type GCResponse struct {
	Removed int `json:"removed"`
}

// Статусы загрузки.
const (
	StatusNotFound  = "not_found"
	StatusUploading = "uploading"
	StatusCompleted = "completed"
)
