package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// LocalStore — хранение файлов в директории на локальном диске.
type LocalStore struct {
	// dataDir — корневая директория хранения (FS_LOCAL_DATA_DIR)
	dataDir string
}

// NewLocalStore создаёт LocalStore, при необходимости создавая директорию.
func NewLocalStore(dataDir string) (*LocalStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &LocalStore{dataDir: dataDir}, nil
}

// Kind возвращает model.StorageLocal.
func (s *LocalStore) Kind() model.StorageKind {
	return model.StorageLocal
}

// Put записывает данные на диск с подсчётом SHA-256 на лету.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *LocalStore) Put(ctx context.Context, r io.Reader, _ int64, name, _ string) (*PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	storageName := generateStorageName(name)
	fullPath := filepath.Join(s.dataDir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath) //nolint:gosec // имя генерируется сервисом
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &PutResult{
		Handle: model.LocalHandle(storageName),
		Size:   size,
	}, nil
}

// Open открывает файл. Диапазон не применяется: Object.Content
// позволяет вызывающему отдать Range самостоятельно.
func (s *LocalStore) Open(_ context.Context, h model.StorageHandle, _ string) (*Object, error) {
	fullPath, err := s.resolve(h)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath) //nolint:gosec // путь проверен resolve
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", h.Path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", h.Path, err)
	}

	return &Object{
		Body:    f,
		Content: f,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Delete удаляет файл. Возвращает nil, если файла уже нет.
func (s *LocalStore) Delete(_ context.Context, h model.StorageHandle) error {
	fullPath, err := s.resolve(h)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", h.Path, err)
	}
	return nil
}

// Stat возвращает размер файла на диске.
func (s *LocalStore) Stat(_ context.Context, h model.StorageHandle) (int64, error) {
	fullPath, err := s.resolve(h)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrObjectNotFound
		}
		return 0, fmt.Errorf("ошибка получения информации о файле %s: %w", h.Path, err)
	}
	return info.Size(), nil
}

// Ping проверяет, что директория данных существует.
func (s *LocalStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.dataDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s не директория", ErrUnavailable, s.dataDir)
	}
	return nil
}

// DataDir возвращает путь к директории данных.
func (s *LocalStore) DataDir() string {
	return s.dataDir
}

// resolve превращает handle в абсолютный путь внутри dataDir.
func (s *LocalStore) resolve(h model.StorageHandle) (string, error) {
	if h.Kind != model.StorageLocal {
		return "", fmt.Errorf("handle %s не относится к локальному хранилищу", h)
	}
	rel := filepath.FromSlash(h.Path)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("недопустимый путь %q: выход за пределы директории данных", h.Path)
	}
	return filepath.Join(s.dataDir, rel), nil
}

// generateStorageName генерирует имя файла для хранения на диске.
// Формат: {name}_{timestamp}_{uuid}.{ext}
// Пример: report_20260221150405_a1b2c3d4.pdf
func generateStorageName(originalFilename string) string {
	base := filepath.Base(strings.ReplaceAll(originalFilename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	name := sanitize(strings.TrimSuffix(base, filepath.Ext(base)))

	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "file"
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, sanitize(ext))
}

// sanitize оставляет в имени только буквы, цифры, '-', '_' и '.'.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
