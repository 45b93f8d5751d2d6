// files.go — обработчики загрузки, списка, метаданных, скачивания,
// preview и удаления файлов.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/service"
)

// uploadField — имя multipart-поля с файлами.
const uploadField = "files"

// multipartMemory — часть формы, держимая в памяти; остальное во временных файлах.
const multipartMemory = 32 << 20

// UploadFiles — POST /api/v1/files (multipart/form-data, поле files).
func (h *APIHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.maxRequestBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, fmt.Sprintf("Запрос больше %d байт", tooLarge.Limit))
			return
		}
		apierrors.ValidationError(w, "Ожидается multipart/form-data: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		h.fail(w, service.ErrNoFilesProvided)
		return
	}
	if len(headers) > h.limits.MaxFiles {
		apierrors.ValidationError(w, fmt.Sprintf("Не более %d файлов за раз", h.limits.MaxFiles))
		return
	}

	items := make([]service.UploadItem, 0, len(headers))
	for _, fh := range headers {
		item, closeFn, err := openUploadItem(fh)
		if err != nil {
			h.logger.Error("Ошибка чтения части multipart",
				slog.String("name", fh.Filename),
				slog.String("error", err.Error()),
			)
			apierrors.ValidationError(w, "Не удалось прочитать файл "+fh.Filename)
			return
		}
		defer closeFn()
		items = append(items, item)
	}

	created, err := h.transfer.Upload(r.Context(), caller, items)
	if err != nil {
		var batch *service.BatchError
		if !errors.As(err, &batch) {
			h.fail(w, err)
			return
		}
		if len(created) == 0 {
			h.fail(w, batch.Failures[0].Err)
			return
		}

		// Частичный успех: клиент получает и созданные, и отклонённые файлы
		h.logger.Warn("Пакет загружен частично",
			slog.Int("created", len(created)),
			slog.Int("total", batch.Total),
		)
		writeJSON(w, http.StatusMultiStatus, uploadResponse{
			Message: fmt.Sprintf("Загружено файлов: %d из %d", len(created), batch.Total),
			Files:   toFileList(created, caller),
			Failed:  toUploadFailures(batch.Failures),
		})
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message: fmt.Sprintf("Загружено файлов: %d", len(created)),
		Files:   toFileList(created, caller),
	})
}

// openUploadItem открывает часть формы и определяет тип содержимого.
// Если клиент не прислал тип или прислал общий, тип определяется по содержимому.
func openUploadItem(fh *multipart.FileHeader) (service.UploadItem, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadItem{}, nil, err
	}
	closeFn := func() { _ = f.Close() }

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		mt, derr := mimetype.DetectReader(f)
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			closeFn()
			return service.UploadItem{}, nil, serr
		}
		if derr == nil {
			contentType = mt.String()
		}
	}

	return service.UploadItem{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	}, closeFn, nil
}

// ListFiles — GET /api/v1/files: файлы вызывающего и доступные ему, новые первыми.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	summaries, err := h.access.ListMine(r.Context(), caller)
	if err != nil {
		h.fail(w, err)
		return
	}

	items := make([]fileResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, toFileResponse(s.FileRecord, caller))
	}
	writeJSON(w, http.StatusOK, fileListResponse{Items: items, Total: len(items)})
}

// GetFile — GET /api/v1/files/{file_id}.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	f, err := h.access.Get(r.Context(), caller, fileID.String())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(f, caller))
}

// DownloadFile — GET /api/v1/files/{file_id}/download (поддерживает Range).
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.transfer.Download(w, r, caller, fileID.String()); err != nil {
		h.fail(w, err)
	}
}

// PreviewFile — GET /api/v1/files/{file_id}/preview.
func (h *APIHandler) PreviewFile(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	p, err := h.transfer.PreviewURL(r.Context(), caller, fileID.String())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{URL: p.URL, ExpiresAt: p.ExpiresAt, Direct: p.Direct})
}

// DeleteFile — DELETE /api/v1/files/{file_id}. Только владелец.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	id, err := h.transfer.Delete(r.Context(), caller, fileID.String())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ID: id, Message: "Файл удалён"})
}
