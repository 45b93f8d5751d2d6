// auth.go — JWT middleware для аутентификации пользователей fileshare.
// Подпись проверяется по JWKS identity provider (RS256) или общим
// секретом (HS256). Из токена извлекаются sub и атрибуты пользователя.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"
	// contextKeySubjectHolder — ячейка для subject, читаемая RequestLogger.
	contextKeySubjectHolder contextKey = "subject_holder"
)

// subjectHolder — subject, найденный JWT middleware ниже по цепочке.
type subjectHolder struct {
	subject string
}

func withSubjectHolder(ctx context.Context, h *subjectHolder) context.Context {
	return context.WithValue(ctx, contextKeySubjectHolder, h)
}

func subjectHolderFromContext(ctx context.Context) *subjectHolder {
	h, _ := ctx.Value(contextKeySubjectHolder).(*subjectHolder)
	return h
}

// AuthClaims — claims аутентифицированного пользователя.
type AuthClaims struct {
	// Subject — sub из JWT, идентификатор пользователя.
	Subject string
	// PreferredUsername — preferred_username из JWT.
	PreferredUsername string
	// Name — отображаемое имя (name).
	Name string
	// Email — email из JWT.
	Email string
}

// DisplayName возвращает имя для отображения: name, затем preferred_username.
func (c *AuthClaims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.PreferredUsername
}

// userClaims — raw claims JWT для парсинга.
type userClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
}

// JWTConfig — параметры проверки токенов.
type JWTConfig struct {
	// JWKSURL — URL JWKS endpoint; если пуст, используется HS256Secret
	JWKSURL string
	// HS256Secret — общий секрет для HS256
	HS256Secret string
	// Issuer — ожидаемый issuer (пустой — не проверяется)
	Issuer              string
	Leeway              time.Duration
	JWKSClientTimeout   time.Duration
	JWKSRefreshInterval time.Duration
}

// JWTAuth — middleware JWT-аутентификации.
type JWTAuth struct {
	keyfunc func(ctx context.Context) jwt.Keyfunc
	methods []string
	issuer  string
	leeway  time.Duration
	logger  *slog.Logger
}

// NewJWTAuth создаёт JWT middleware. При заданном JWKSURL ключи
// загружаются из JWKS с фоновым обновлением, иначе используется HS256.
func NewJWTAuth(cfg JWTConfig, logger *slog.Logger) (*JWTAuth, error) {
	if cfg.JWKSURL == "" {
		if cfg.HS256Secret == "" {
			return nil, fmt.Errorf("не задан источник ключей JWT")
		}
		return NewHS256JWTAuth([]byte(cfg.HS256Secret), cfg.Issuer, cfg.Leeway, logger), nil
	}

	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: cfg.JWKSClientTimeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.JWKSRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", cfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewJWTAuthWithKeyfunc(k, cfg.Issuer, cfg.Leeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт RS256 middleware с готовым keyfunc.
// Используется в тестах с keyfunc.NewJWKSetJSON.
func NewJWTAuthWithKeyfunc(k keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		keyfunc: k.KeyfuncCtx,
		methods: []string{"RS256"},
		issuer:  issuer,
		leeway:  leeway,
		logger:  logger.With(slog.String("component", "jwt_auth")),
	}
}

// NewHS256JWTAuth создаёт middleware, проверяющий HS256-подпись общим секретом.
func NewHS256JWTAuth(secret []byte, issuer string, leeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		keyfunc: func(context.Context) jwt.Keyfunc {
			return func(*jwt.Token) (any, error) { return secret, nil }
		},
		methods: []string{"HS256"},
		issuer:  issuer,
		leeway:  leeway,
		logger:  logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token, проверяет подпись и срок действия,
// помещает AuthClaims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			rawClaims := &userClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods(j.methods),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.leeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.keyfunc(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				j.logger.Debug("JWT валидация не пройдена",
					slog.Any("error", err),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			subject, err := rawClaims.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			claims := &AuthClaims{
				Subject:           subject,
				PreferredUsername: rawClaims.PreferredUsername,
				Name:              rawClaims.Name,
				Email:             rawClaims.Email,
			}

			if holder := subjectHolderFromContext(r.Context()); holder != nil {
				holder.subject = subject
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// --- Context helpers ---

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// SubjectFromContext извлекает sub из контекста запроса.
// Возвращает пустую строку, если claims не найдены.
func SubjectFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.Subject
}

// WithClaims помещает claims в контекст (для тестов обработчиков).
func WithClaims(ctx context.Context, claims *AuthClaims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}
