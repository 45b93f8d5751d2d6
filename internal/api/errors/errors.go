// Пакет errors — конструкторы стандартных ошибок API fileshare.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/fileshare/internal/service"
)

// Коды ошибок API.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeNotAuthorized        = "NOT_AUTHORIZED"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeLinkInvalidOrExpired = "LINK_INVALID_OR_EXPIRED"
	CodeNoFilesProvided      = "NO_FILES_PROVIDED"
	CodeFileMissingOnDisk    = "FILE_MISSING_ON_DISK"
	CodeBackendUnavailable   = "BACKEND_UNAVAILABLE"
	CodeRangeNotSatisfiable  = "RANGE_NOT_SATISFIABLE"
	CodeInternalError        = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// serviceErrors — соответствие ошибок сервисного слоя HTTP-ответам.
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{service.ErrAccessDenied, http.StatusForbidden, CodeAccessDenied},
	{service.ErrNotAuthorized, http.StatusForbidden, CodeNotAuthorized},
	{service.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound},
	{service.ErrLinkInvalidOrExpired, http.StatusGone, CodeLinkInvalidOrExpired},
	{service.ErrNoFilesProvided, http.StatusBadRequest, CodeNoFilesProvided},
	{service.ErrFileMissingOnDisk, http.StatusGone, CodeFileMissingOnDisk},
	{service.ErrBackendUnavailable, http.StatusBadGateway, CodeBackendUnavailable},
	{service.ErrRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable, CodeRangeNotSatisfiable},
	{service.ErrValidation, http.StatusBadRequest, CodeValidationError},
}

// Describe возвращает HTTP-статус, код и сообщение для ошибки сервисного
// слоя. Сообщение стабильно: обёрнутые подробности (операции хранилища,
// ключи объектов, ошибки SDK) в него не попадают. known=false для ошибок,
// не относящихся к сервисному слою.
func Describe(err error) (status int, code, message string, known bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, CodeValidationError, verr.Error(), true
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.err.Error(), true
		}
	}
	return http.StatusInternalServerError, CodeInternalError, "Внутренняя ошибка сервера", false
}

// ServiceError записывает ответ для ошибки сервисного слоя.
// Подробности ошибок хранилища и неизвестных ошибок остаются в логе.
func ServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code, message, known := Describe(err)
	switch {
	case !known:
		logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
	case status >= http.StatusInternalServerError:
		logger.Warn("Ошибка хранилища", slog.String("error", err.Error()))
	}
	WriteError(w, status, code, message)
}
