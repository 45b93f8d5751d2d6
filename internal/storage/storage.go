// Пакет storage — хранение содержимого файлов: локальный диск и
// S3-совместимое объектное хранилище за общим интерфейсом Backend.
// Вид хранилища фиксируется в model.StorageHandle при записи, Router
// выбирает backend по handle при чтении и удалении.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// Ошибки хранилища.
var (
	// ErrObjectNotFound — содержимое отсутствует в хранилище.
	ErrObjectNotFound = errors.New("объект не найден в хранилище")
	// ErrUnavailable — хранилище временно недоступно.
	ErrUnavailable = errors.New("хранилище недоступно")
	// ErrInvalidRange — запрошенный диапазон байт недопустим.
	ErrInvalidRange = errors.New("недопустимый диапазон байт")
	// ErrPresignUnsupported — хранилище не умеет выдавать pre-signed URL.
	ErrPresignUnsupported = errors.New("pre-signed URL не поддерживается хранилищем")
)

// PutResult — результат записи содержимого.
type PutResult struct {
	Handle model.StorageHandle
	// Size — размер, известный после записи. 0 означает «не определён».
	Size int64
}

// Object — открытое для чтения содержимое.
// Вызывающий код обязан закрыть Body.
type Object struct {
	Body io.ReadCloser
	// Content — произвольный доступ (только локальные файлы);
	// позволяет отдавать Range через http.ServeContent
	Content io.ReadSeeker
	// Size — длина отдаваемого тела
	Size int64
	// ContentRange — значение Content-Range для частичного ответа
	ContentRange string
	// Partial — тело соответствует запрошенному диапазону (206)
	Partial bool
	ETag    string
	ModTime time.Time
}

// Backend — одно хранилище.
type Backend interface {
	// Kind — вид хранилища, записываемый в handle.
	Kind() model.StorageKind
	// Put записывает содержимое. size <= 0 — размер заранее неизвестен.
	Put(ctx context.Context, r io.Reader, size int64, name, contentType string) (*PutResult, error)
	// Open открывает содержимое. rangeHeader — значение заголовка Range
	// (пустое — весь объект); backend может его игнорировать, если
	// возвращает Object.Content.
	Open(ctx context.Context, h model.StorageHandle, rangeHeader string) (*Object, error)
	// Delete удаляет содержимое. Отсутствие объекта ошибкой не считается.
	Delete(ctx context.Context, h model.StorageHandle) error
	// Stat возвращает размер содержимого.
	Stat(ctx context.Context, h model.StorageHandle) (int64, error)
}

// Presigner — backend, выдающий временные прямые ссылки.
type Presigner interface {
	PresignGet(ctx context.Context, h model.StorageHandle, filename string, ttl time.Duration) (string, error)
}
