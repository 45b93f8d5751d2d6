// identity.go — синхронизация справочника пользователей по claims
// аутентифицированных запросов. Пользователь становится доступен для
// выдачи доступа по email после первого запроса к API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// IdentityObserver — приёмник атрибутов пользователя (identity.Directory).
type IdentityObserver interface {
	Observe(ctx context.Context, u model.Identity) error
}

// IdentitySync возвращает middleware, передающий атрибуты вызывающего
// в справочник. Ошибка справочника не прерывает запрос.
// Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func IdentitySync(observer IdentityObserver, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "identity_sync"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims != nil && claims.Email != "" {
				u := model.Identity{
					ID:    claims.Subject,
					Name:  claims.DisplayName(),
					Email: claims.Email,
				}
				if err := observer.Observe(r.Context(), u); err != nil {
					log.Warn("Не удалось обновить справочник пользователей",
						slog.String("subject", claims.Subject),
						slog.String("error", err.Error()),
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
