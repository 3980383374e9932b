package models

import "time"

// Kind различает загруженные файлы и сохранённый текст.
type Kind string

const (
	KindFile Kind = "file"
	KindText Kind = "text"
)

// Valid сообщает, известен ли тип объекта.
func (k Kind) Valid() bool {
	return k == KindFile || k == KindText
}

// StoredObject описывает завершённый неизменяемый объект хранилища.
type StoredObject struct {
	ID          string    `json:"file_id"`
	DisplayName string    `json:"filename"`
	SizeBytes   int64     `json:"size"`
	Kind        Kind      `json:"type"`
	StorageKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
