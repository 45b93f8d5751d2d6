// transfer.go — загрузка, скачивание, preview и удаление файлов.
// Скачивание — streaming через сервис без буферизации всего объекта:
// локальные файлы отдаются через http.ServeContent (Range, If-*),
// для объектного хранилища Range пробрасывается в хранилище.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/audit"
	"github.com/bigkaa/fileshare/internal/domain/access"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage"
)

// defaultContentType — тип содержимого, если клиент его не передал.
const defaultContentType = "application/octet-stream"

// Prometheus-метрики передачи файлов.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_uploads_total",
		Help: "Количество загруженных файлов (по статусу).",
	}, []string{"status"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_downloads_total",
		Help: "Количество скачиваний (по виду хранилища и статусу).",
	}, []string{"backend", "status"})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_download_bytes_total",
		Help: "Общее количество переданных байт при скачивании.",
	})
)

// UploadItem — один файл в пакете загрузки.
type UploadItem struct {
	Name        string
	ContentType string
	// Size — размер, заявленный клиентом (0 — неизвестен)
	Size int64
	Body io.Reader
}

// UploadPolicy — ограничения пакета загрузки.
type UploadPolicy struct {
	MaxFiles    int
	MaxFileSize int64
	// AllowedExtensions — расширения без точки в нижнем регистре;
	// пустой список — без ограничений
	AllowedExtensions []string
}

// TransferConfig — параметры TransferService.
type TransferConfig struct {
	Policy UploadPolicy
	// APIBaseURL — база URL собственного API для preview локальных файлов
	APIBaseURL string
	// PreviewURLTTL — время жизни pre-signed URL
	PreviewURLTTL time.Duration
}

// Preview — ссылка для просмотра файла.
type Preview struct {
	URL string
	// ExpiresAt — срок действия pre-signed URL (nil для локальных файлов)
	ExpiresAt *time.Time
	// Direct — ссылка ведёт напрямую в объектное хранилище
	Direct bool
}

// TransferService — оркестратор загрузки и скачивания.
type TransferService struct {
	files    repository.FileRepository
	blobs    BlobStore
	recorder audit.Recorder
	cfg      TransferConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewTransferService создаёт оркестратор передачи файлов.
func NewTransferService(
	files repository.FileRepository,
	blobs BlobStore,
	recorder audit.Recorder,
	cfg TransferConfig,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		files:    files,
		blobs:    blobs,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "transfer_service")),
		now:      time.Now,
	}
}

// Upload сохраняет пакет файлов. Каждый файл — независимая запись:
// ошибка на одном файле не мешает остальным. Если хотя бы один файл не
// сохранён, созданные записи возвращаются вместе с *BatchError.
func (s *TransferService) Upload(ctx context.Context, caller string, items []UploadItem) ([]*model.FileRecord, error) {
	if len(items) == 0 {
		return nil, ErrNoFilesProvided
	}
	if err := s.validateBatch(items); err != nil {
		uploadsTotal.WithLabelValues("rejected").Add(float64(len(items)))
		return nil, err
	}

	created := make([]*model.FileRecord, 0, len(items))
	var failures []UploadFailure
	for _, item := range items {
		f, err := s.uploadOne(ctx, caller, item)
		if err != nil {
			uploadsTotal.WithLabelValues("error").Inc()
			s.logger.Error("Файл пакета не сохранён",
				slog.String("name", item.Name),
				slog.String("error", err.Error()),
			)
			failures = append(failures, UploadFailure{Name: item.Name, Err: err})
			continue
		}
		uploadsTotal.WithLabelValues("success").Inc()
		created = append(created, f)
	}

	if len(failures) > 0 {
		return created, &BatchError{Failures: failures, Total: len(items)}
	}
	return created, nil
}

// uploadOne записывает содержимое, уточняет размер и создаёт запись.
func (s *TransferService) uploadOne(ctx context.Context, caller string, item UploadItem) (*model.FileRecord, error) {
	contentType := item.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	res, err := s.blobs.Put(ctx, item.Body, item.Size, item.Name, contentType)
	if err != nil {
		return nil, fmt.Errorf("запись %q в хранилище: %w", item.Name, storageError(err))
	}

	size := res.Size
	if size == 0 && res.Handle.IsRemote() {
		size = s.correctSize(ctx, res.Handle, item.Name)
	}

	f := &model.FileRecord{
		ID:            uuid.NewString(),
		OriginalName:  item.Name,
		MimeType:      contentType,
		Size:          size,
		Handle:        res.Handle,
		Owner:         caller,
		AccessControl: model.NewAccessSet(caller),
	}

	if err := s.files.Create(ctx, f); err != nil {
		if derr := s.blobs.Delete(ctx, res.Handle); derr != nil {
			s.logger.Warn("Не удалось удалить содержимое после ошибки создания записи",
				slog.String("handle", res.Handle.String()),
				slog.String("error", derr.Error()),
			)
		}
		return nil, fmt.Errorf("создание записи файла %q: %w", item.Name, err)
	}

	s.recorder.Record(ctx, model.ActionUpload, f.ID, caller, f.OriginalName)
	s.logger.Info("Файл загружен",
		slog.String("file_id", f.ID),
		slog.String("handle", f.Handle.String()),
		slog.Int64("size", f.Size),
	)
	return f, nil
}

// correctSize запрашивает размер у хранилища, если при записи он не
// был определён. Ошибка не фатальна: размер остаётся 0.
func (s *TransferService) correctSize(ctx context.Context, h model.StorageHandle, name string) int64 {
	size, err := s.blobs.Stat(ctx, h)
	if err != nil {
		s.logger.Warn("Не удалось уточнить размер файла в хранилище",
			slog.String("name", name),
			slog.String("handle", h.String()),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return size
}

// validateBatch проверяет пакет целиком до записи первого файла.
func (s *TransferService) validateBatch(items []UploadItem) error {
	p := s.cfg.Policy
	if p.MaxFiles > 0 && len(items) > p.MaxFiles {
		return newValidationError("не более %d файлов за раз", p.MaxFiles)
	}

	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return newValidationError("пустое имя файла")
		}
		if p.MaxFileSize > 0 && item.Size > p.MaxFileSize {
			return newValidationError("файл %q больше %d байт", item.Name, p.MaxFileSize)
		}
		if len(p.AllowedExtensions) > 0 {
			ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(item.Name)), ".")
			if !slices.Contains(p.AllowedExtensions, ext) {
				return newValidationError("тип файла %q не разрешён", item.Name)
			}
		}
	}
	return nil
}

// Download отдаёт содержимое файла в w. Запись DOWNLOAD в журнал
// делается один раз, после открытия содержимого и до начала передачи.
// Ошибка возвращается, только пока ответ не начат.
func (s *TransferService) Download(w http.ResponseWriter, r *http.Request, caller, fileID string) error {
	ctx := r.Context()

	f, err := loadFile(ctx, s.files, fileID)
	if err != nil {
		return err
	}
	if !access.CanRead(caller, f) {
		return ErrAccessDenied
	}

	backend := string(f.Handle.Kind)

	rangeHeader := ""
	if f.Handle.IsRemote() {
		rangeHeader = r.Header.Get("Range")
	}

	obj, err := s.blobs.Open(ctx, f.Handle, rangeHeader)
	if err != nil {
		downloadsTotal.WithLabelValues(backend, "error").Inc()
		if errors.Is(storageError(err), ErrFileMissingOnDisk) {
			s.logger.Error("Содержимое файла отсутствует в хранилище",
				slog.String("file_id", f.ID),
				slog.String("handle", f.Handle.String()),
			)
		}
		return storageError(err)
	}
	defer obj.Body.Close()

	s.recorder.Record(ctx, model.ActionDownload, f.ID, caller, f.OriginalName)

	h := w.Header()
	h.Set("Content-Type", f.MimeType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalName}))

	cw := &countingWriter{ResponseWriter: w}
	if obj.Content != nil {
		http.ServeContent(cw, r, f.OriginalName, obj.ModTime, obj.Content)
	} else {
		s.streamRemote(cw, obj, f.ID)
	}

	downloadsTotal.WithLabelValues(backend, "success").Inc()
	downloadBytesTotal.Add(float64(cw.written))
	return nil
}

// streamRemote пишет заголовки объекта и копирует тело без буферизации.
func (s *TransferService) streamRemote(w http.ResponseWriter, obj *storage.Object, fileID string) {
	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	if obj.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if obj.ETag != "" {
		h.Set("ETag", obj.ETag)
	}
	if !obj.ModTime.IsZero() {
		h.Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}

	status := http.StatusOK
	if obj.Partial {
		h.Set("Content-Range", obj.ContentRange)
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	written, err := io.Copy(w, obj.Body)
	if err != nil {
		// Заголовки уже отправлены, вернуть ошибку клиенту нельзя
		s.logger.Error("Ошибка streaming download",
			slog.String("file_id", fileID),
			slog.Int64("bytes_written", written),
			slog.String("error", err.Error()),
		)
	}
}

// PreviewURL возвращает ссылку для просмотра: pre-signed URL для
// объектного хранилища или URL скачивания через сервис для локальных файлов.
func (s *TransferService) PreviewURL(ctx context.Context, caller, fileID string) (*Preview, error) {
	f, err := loadFile(ctx, s.files, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(caller, f) {
		return nil, ErrAccessDenied
	}

	if !f.Handle.IsRemote() {
		return &Preview{URL: s.cfg.APIBaseURL + "/api/v1/files/" + f.ID + "/download"}, nil
	}

	url, err := s.blobs.PresignGet(ctx, f.Handle, f.OriginalName, s.cfg.PreviewURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	expiresAt := s.now().Add(s.cfg.PreviewURLTTL).UTC()
	return &Preview{URL: url, ExpiresAt: &expiresAt, Direct: true}, nil
}

// Delete удаляет файл. Только владелец. Ошибка удаления содержимого
// логируется и не мешает удалению записи.
func (s *TransferService) Delete(ctx context.Context, caller, fileID string) (string, error) {
	f, err := loadFile(ctx, s.files, fileID)
	if err != nil {
		return "", err
	}
	if !f.IsOwner(caller) {
		return "", ErrNotAuthorized
	}

	if err := s.blobs.Delete(ctx, f.Handle); err != nil {
		s.logger.Warn("Не удалось удалить содержимое файла, запись удаляется",
			slog.String("file_id", f.ID),
			slog.String("handle", f.Handle.String()),
			slog.String("error", err.Error()),
		)
	}

	s.recorder.Record(ctx, model.ActionDelete, f.ID, caller, f.OriginalName)

	if err := s.files.Delete(ctx, f.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("удаление записи файла: %w", err)
	}

	s.logger.Info("Файл удалён", slog.String("file_id", f.ID))
	return f.ID, nil
}

// countingWriter считает отданные байты.
type countingWriter struct {
	http.ResponseWriter
	written int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.ResponseWriter.Write(b)
	c.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (c *countingWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}
