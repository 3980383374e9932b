package models

import "io"

// UploadState — наблюдаемое состояние chunked-загрузки.
type UploadState string

const (
	StateNotFound  UploadState = "not_found"
	StateUploading UploadState = "uploading"
	StateCompleted UploadState = "completed"
)

// ChunkRequest — одна часть многочастной загрузки.
type ChunkRequest struct {
	UploadID      string
	Index         int
	DeclaredTotal int
	DisplayName   string
	Body          io.Reader
}

// ChunkStatus возвращается после приёма каждой части.
type ChunkStatus struct {
	UploadID      string
	DisplayName   string
	Kind          Kind
	Status        UploadState
	ReceivedCount int
	DeclaredTotal int
}

// UploadStatus — ответ на опрос состояния загрузки.
// ReceivedCount заполняется только для незавершённых загрузок.
type UploadStatus struct {
	Status        UploadState
	ReceivedCount *int
	ObjectExists  bool
}
