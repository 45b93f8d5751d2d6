// errors.go — ошибки бизнес-логики сервисного слоя.
// Каждой ошибке соответствует стабильный код в HTTP API.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — файл не найден.
	ErrNotFound = errors.New("файл не найден")
	// ErrAccessDenied — вызывающий не владелец и не в списке доступа.
	ErrAccessDenied = errors.New("доступ к файлу запрещён")
	// ErrNotAuthorized — операция доступна только владельцу.
	ErrNotAuthorized = errors.New("операция доступна только владельцу файла")
	// ErrUserNotFound — пользователь с указанным email не найден.
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrLinkInvalidOrExpired — ссылка не выпускалась, истекла или заменена.
	ErrLinkInvalidOrExpired = errors.New("ссылка недействительна или истекла")
	// ErrNoFilesProvided — пустой пакет загрузки.
	ErrNoFilesProvided = errors.New("файлы не переданы")
	// ErrFileMissingOnDisk — метаданные есть, содержимого нет.
	ErrFileMissingOnDisk = errors.New("содержимое файла отсутствует в хранилище")
	// ErrBackendUnavailable — хранилище временно недоступно.
	ErrBackendUnavailable = errors.New("хранилище недоступно")
	// ErrRangeNotSatisfiable — запрошенный диапазон байт недопустим.
	ErrRangeNotSatisfiable = errors.New("недопустимый диапазон байт")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)

// ValidationError — отклонённые входные данные. Reason предназначен
// для клиента и не содержит внутренних подробностей.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Reason
}

// Is сопоставляет ошибку с ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// newValidationError создаёт ValidationError с форматированной причиной.
func newValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UploadFailure — файл пакета, который не удалось сохранить.
type UploadFailure struct {
	Name string
	Err  error
}

// BatchError — часть файлов пакета не сохранена. Остальные файлы
// пакета созданы и возвращаются вместе с ошибкой.
type BatchError struct {
	Failures []UploadFailure
	Total    int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("не сохранено файлов: %d из %d", len(e.Failures), e.Total)
}

// Unwrap отдаёт причины по файлам для errors.Is / errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
