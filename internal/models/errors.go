package models

import "errors"

var (
	ErrNotFound          = errors.New("file not found")
	ErrBadRequest        = errors.New("bad request")
	ErrAlreadyExists     = errors.New("file already exists")
	ErrStorage           = errors.New("storage fault")
	ErrChunkUploadFailed = errors.New("chunk upload failed")
	ErrMissingChunk      = errors.New("missing chunk")
)
