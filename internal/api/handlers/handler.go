// handler.go — основной обработчик API fileshare.
// Объединяет health и бизнес-обработчики, делегируя запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/api/middleware"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/service"
)

// AccessService — управление доступом (реализуется service.AccessService).
type AccessService interface {
	Get(ctx context.Context, caller, fileID string) (*model.FileRecord, error)
	ListMine(ctx context.Context, caller string) ([]service.FileSummary, error)
	GrantByEmail(ctx context.Context, caller, fileID, email string) (*service.GrantResult, error)
	IssueShareLink(ctx context.Context, caller, fileID string) (*service.ShareLink, error)
	ConsumeShareLink(ctx context.Context, caller, token string) (*model.FileRecord, error)
	RevokeAccess(ctx context.Context, caller, fileID, target string) (*service.RevokeResult, error)
	ListPermissions(ctx context.Context, caller, fileID string) (*service.Permissions, error)
	History(ctx context.Context, caller, fileID string) ([]*model.AuditEntry, error)
}

// TransferService — передача файлов (реализуется service.TransferService).
type TransferService interface {
	Upload(ctx context.Context, caller string, items []service.UploadItem) ([]*model.FileRecord, error)
	Download(w http.ResponseWriter, r *http.Request, caller, fileID string) error
	PreviewURL(ctx context.Context, caller, fileID string) (*service.Preview, error)
	Delete(ctx context.Context, caller, fileID string) (string, error)
}

// UploadLimits — ограничения HTTP-запроса загрузки.
type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

// maxRequestBytes — предельный размер multipart-запроса.
func (l UploadLimits) maxRequestBytes() int64 {
	const overhead = 1 << 20
	return int64(l.MaxFiles)*l.MaxFileSize + overhead
}

// APIHandler — основной обработчик API fileshare.
type APIHandler struct {
	health   *HealthHandler
	access   AccessService
	transfer TransferService
	limits   UploadLimits
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	access AccessService,
	transfer TransferService,
	limits UploadLimits,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		access:   access,
		transfer: transfer,
		limits:   limits,
		validate: newValidator(),
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// newValidator создаёт валидатор, называющий поля по JSON-тегам.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// caller возвращает sub аутентифицированного пользователя или пишет 401.
func (h *APIHandler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	sub := middleware.SubjectFromContext(r.Context())
	if sub == "" {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return "", false
	}
	return sub, true
}

// fail пишет ответ для ошибки сервисного слоя.
func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	apierrors.ServiceError(w, h.logger, err)
}

// decodeJSON читает и валидирует тело запроса. При ошибке пишет 400.
func (h *APIHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apierrors.ValidationError(w, validationMessage(err))
		return false
	}
	return true
}

// validationMessage формирует сообщение из ошибок validator.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": нарушено правило "+fe.Tag())
	}
	return "Ошибка валидации: " + strings.Join(parts, "; ")
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
