package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage"
)

// BlobStore — хранилище содержимого файлов (реализуется storage.Router).
type BlobStore interface {
	Put(ctx context.Context, body io.Reader, size int64, name, contentType string) (*storage.PutResult, error)
	Open(ctx context.Context, h model.StorageHandle, rangeHeader string) (*storage.Object, error)
	Delete(ctx context.Context, h model.StorageHandle) error
	Stat(ctx context.Context, h model.StorageHandle) (int64, error)
	PresignGet(ctx context.Context, h model.StorageHandle, filename string, ttl time.Duration) (string, error)
}

// IdentityResolver — справочник пользователей (реализуется identity.Directory).
type IdentityResolver interface {
	ResolveEmail(ctx context.Context, email string) (model.Identity, error)
	Lookup(ctx context.Context, ids []string) ([]model.Identity, error)
}

// AuditHistory — чтение журнала аудита (реализуется audit.Journal).
type AuditHistory interface {
	History(ctx context.Context, fileID string) ([]*model.AuditEntry, error)
}

// loadFile читает запись файла, приводя ошибки репозитория к ошибкам сервиса.
func loadFile(ctx context.Context, files repository.FileRepository, fileID string) (*model.FileRecord, error) {
	f, err := files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла %s: %w", fileID, err)
	}
	return f, nil
}

// storageError приводит ошибки хранилища к ошибкам сервиса.
func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return ErrFileMissingOnDisk
	case errors.Is(err, storage.ErrInvalidRange):
		return ErrRangeNotSatisfiable
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	default:
		return err
	}
}
