// routes.go — регистрация маршрутов API в chi и разбор path-параметров.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
)

// Пути без аутентификации.
const (
	PathHealthPrefix = "/health/"
	PathMetrics      = "/metrics"
)

// Mount регистрирует все маршруты API на router.
func (h *APIHandler) Mount(r chi.Router) {
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Get(PathMetrics, h.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/files", h.UploadFiles)
		r.Get("/files", h.ListFiles)

		r.Route("/files/{file_id}", func(r chi.Router) {
			r.Get("/", h.withFileID(h.GetFile))
			r.Delete("/", h.withFileID(h.DeleteFile))
			r.Get("/download", h.withFileID(h.DownloadFile))
			r.Get("/preview", h.withFileID(h.PreviewFile))
			r.Post("/share", h.withFileID(h.ShareFile))
			r.Post("/link", h.withFileID(h.CreateShareLink))
			r.Get("/permissions", h.withFileID(h.ListPermissions))
			r.Delete("/permissions/{user_id}", h.withFileID(h.RevokeAccess))
			r.Get("/history", h.withFileID(h.FileHistory))
		})

		r.Get("/share/{token}", h.ConsumeShareLink)
	})
}

// fileHandlerFunc — обработчик с разобранным file_id.
type fileHandlerFunc func(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID)

// withFileID разбирает path-параметр file_id (UUID).
func (h *APIHandler) withFileID(next fileHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fileID openapi_types.UUID

		err := runtime.BindStyledParameterWithOptions("simple", "file_id", chi.URLParam(r, "file_id"), &fileID,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			apierrors.ValidationError(w, "Некорректный параметр file_id: "+err.Error())
			return
		}

		next(w, r, fileID)
	}
}

// bindStringParam разбирает строковый path-параметр.
func bindStringParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || value == "" {
		apierrors.ValidationError(w, "Некорректный параметр "+name)
		return "", false
	}
	return value, true
}
