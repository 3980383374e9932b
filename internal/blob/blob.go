// Package blob хранит байты завершённых объектов. Ключи плоские: без
// вложенных каталогов, ровно один блоб на объект.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist возвращается при обращении к отсутствующему ключу.
var ErrNotExist = errors.New("blob does not exist")

// Info описывает один сохранённый блоб.
type Info struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Reader отдаёт содержимое блоба с поддержкой Seek для Range-запросов.
type Reader struct {
	io.ReadSeekCloser
	Info
}

// Store — байтовое хранилище под Object Store.
type Store interface {
	// Put атомарно записывает содержимое: частично записанный блоб никогда не виден.
	// size < 0 означает неизвестную длину.
	Put(ctx context.Context, key string, r io.Reader, size int64) (int64, error)
	Open(ctx context.Context, key string) (*Reader, error)
	// Delete удаляет блоб; отсутствующий ключ не считается ошибкой.
	Delete(ctx context.Context, key string) error
	// List перечисляет блобы с ключами, начинающимися с prefix, в порядке
	// перечисления бэкенда. Пустой prefix — все блобы.
	List(ctx context.Context, prefix string) ([]Info, error)
}
