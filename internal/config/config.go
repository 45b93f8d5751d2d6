// Пакет config — загрузка и валидация конфигурации сервиса fileshare
// из переменных окружения (и опционального .env файла).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые значения FS_STORAGE_BACKEND.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// MaxPreviewURLTTL — верхняя граница жизни pre-signed preview URL.
const MaxPreviewURLTTL = 15 * time.Minute

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int `env:"FS_PORT" envDefault:"8040"`
	// Уровень логирования (debug, info, warn, error)
	LogLevelRaw string `env:"FS_LOG_LEVEL" envDefault:"info"`
	// Формат логов (json, text)
	LogFormat string `env:"FS_LOG_FORMAT" envDefault:"json"`
	// Разобранный уровень логирования (заполняется в validate)
	LogLevel slog.Level `env:"-"`

	HTTPReadTimeout  time.Duration `env:"FS_HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"FS_HTTP_WRITE_TIMEOUT" envDefault:"0s"`
	HTTPIdleTimeout  time.Duration `env:"FS_HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout  time.Duration `env:"FS_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// --- PostgreSQL ---

	DBHost     string `env:"FS_DB_HOST,required,notEmpty"`
	DBPort     int    `env:"FS_DB_PORT" envDefault:"5432"`
	DBName     string `env:"FS_DB_NAME,required,notEmpty"`
	DBUser     string `env:"FS_DB_USER,required,notEmpty"`
	DBPassword string `env:"FS_DB_PASSWORD,required,notEmpty"`
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string `env:"FS_DB_SSL_MODE" envDefault:"disable"`
	// Параметры пула pgxpool
	DBMaxConns        int32         `env:"FS_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32         `env:"FS_DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetime time.Duration `env:"FS_DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBConnectTimeout  time.Duration `env:"FS_DB_CONNECT_TIMEOUT" envDefault:"10s"`

	// --- Ссылки ---

	// Базовый URL клиентского приложения, в ссылках вида {base}/share/{token}
	PublicBaseURL string `env:"FS_PUBLIC_BASE_URL,required,notEmpty"`
	// Базовый URL собственного API (preview для локальных файлов)
	APIBaseURL string `env:"FS_API_BASE_URL,required,notEmpty"`
	// Время жизни публичной ссылки
	ShareLinkTTL time.Duration `env:"FS_SHARE_LINK_TTL" envDefault:"24h"`
	// Время жизни pre-signed preview URL (не более 15m)
	PreviewURLTTL time.Duration `env:"FS_PREVIEW_URL_TTL" envDefault:"15m"`

	// --- Хранилище ---

	// Основной backend для новых загрузок: local или s3
	StorageBackend string `env:"FS_STORAGE_BACKEND" envDefault:"local"`
	// Запись на локальный диск, если удалённое хранилище недоступно
	StorageFallbackLocal bool `env:"FS_STORAGE_FALLBACK_LOCAL" envDefault:"false"`
	// Корневая директория локального хранилища
	LocalDataDir string `env:"FS_LOCAL_DATA_DIR" envDefault:"./uploads"`

	S3Bucket          string `env:"FS_S3_BUCKET"`
	S3Region          string `env:"FS_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"FS_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"FS_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"FS_S3_SECRET_ACCESS_KEY"`
	S3KeyPrefix       string `env:"FS_S3_KEY_PREFIX"`
	// Путь health endpoint хранилища для мониторинга (MinIO: /minio/health/live)
	S3HealthPath string `env:"FS_S3_HEALTH_PATH" envDefault:"/minio/health/live"`

	// --- Загрузка ---

	UploadMaxFiles          int      `env:"FS_UPLOAD_MAX_FILES" envDefault:"10"`
	UploadMaxFileSize       int64    `env:"FS_UPLOAD_MAX_FILE_SIZE" envDefault:"52428800"`
	UploadAllowedExtensions []string `env:"FS_UPLOAD_ALLOWED_EXTENSIONS" envSeparator:"," envDefault:"jpeg,jpg,png,gif,pdf,csv,txt,zip"`

	// --- JWT ---

	// URL JWKS endpoint (RS256). Если пуст — используется FS_JWT_HS256_SECRET.
	JWTJWKSURL string `env:"FS_JWT_JWKS_URL"`
	// Ожидаемый issuer (пустой — не проверяется)
	JWTIssuer string `env:"FS_JWT_ISSUER"`
	// Общий секрет для HS256-токенов
	JWTHS256Secret      string        `env:"FS_JWT_HS256_SECRET"`
	JWTLeeway           time.Duration `env:"FS_JWT_LEEWAY" envDefault:"5s"`
	JWKSRefreshInterval time.Duration `env:"FS_JWKS_REFRESH_INTERVAL" envDefault:"15m"`
	JWKSClientTimeout   time.Duration `env:"FS_JWKS_CLIENT_TIMEOUT" envDefault:"10s"`

	// --- Справочник пользователей ---

	IdentityCacheSize int           `env:"FS_IDENTITY_CACHE_SIZE" envDefault:"1000"`
	IdentityCacheTTL  time.Duration `env:"FS_IDENTITY_CACHE_TTL" envDefault:"5m"`

	// --- topologymetrics ---

	DephealthGroup         string        `env:"FS_DEPHEALTH_GROUP" envDefault:"fileshare"`
	DephealthCheckInterval time.Duration `env:"FS_DEPHEALTH_CHECK_INTERVAL" envDefault:"15s"`
}

// Load загружает конфигурацию из переменных окружения.
// Если в рабочей директории есть .env — он подгружается, не перекрывая
// уже заданные переменные.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("чтение .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("разбор переменных окружения: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет значения и заполняет производные поля.
//
//nolint:cyclop // последовательность независимых проверок
func (c *Config) validate() error {
	level, err := parseLogLevel(c.LogLevelRaw)
	if err != nil {
		return fmt.Errorf("FS_LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("FS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", c.LogFormat)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("FS_PORT: недопустимый порт %d", c.Port)
	}

	for key, raw := range map[string]string{
		"FS_PUBLIC_BASE_URL": c.PublicBaseURL,
		"FS_API_BASE_URL":    c.APIBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: некорректный URL %q", key, raw)
		}
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")

	if c.ShareLinkTTL <= 0 {
		return fmt.Errorf("FS_SHARE_LINK_TTL: значение должно быть > 0")
	}
	if c.PreviewURLTTL <= 0 || c.PreviewURLTTL > MaxPreviewURLTTL {
		return fmt.Errorf("FS_PREVIEW_URL_TTL: допустимый диапазон (0, %s]", MaxPreviewURLTTL)
	}

	switch c.StorageBackend {
	case StorageBackendLocal:
	case StorageBackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("FS_S3_BUCKET: обязателен при FS_STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("FS_STORAGE_BACKEND: недопустимое значение %q, допустимые: local, s3", c.StorageBackend)
	}

	if c.UploadMaxFiles < 1 {
		return fmt.Errorf("FS_UPLOAD_MAX_FILES: значение должно быть >= 1")
	}
	if c.UploadMaxFileSize < 1 {
		return fmt.Errorf("FS_UPLOAD_MAX_FILE_SIZE: значение должно быть >= 1")
	}
	for i, ext := range c.UploadAllowedExtensions {
		c.UploadAllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}

	if c.JWTJWKSURL == "" && c.JWTHS256Secret == "" {
		return fmt.Errorf("FS_JWT_JWKS_URL или FS_JWT_HS256_SECRET: требуется хотя бы один источник ключей")
	}

	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("FS_DB_MAX_CONNS/FS_DB_MIN_CONNS: требуется 0 <= min <= max, max >= 1")
	}

	if c.IdentityCacheSize < 1 {
		return fmt.Errorf("FS_IDENTITY_CACHE_SIZE: значение должно быть >= 1")
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return "pgx5" + strings.TrimPrefix(c.DatabaseDSN(), "postgres")
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
