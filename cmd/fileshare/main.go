// Точка входа fileshare — сервиса хранения файлов и обмена ими.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// собирает хранилища содержимого, сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware.
//
// Подкоманда import-legacy <file> загружает выгрузку старого реестра
// (JSON lines) и завершает работу.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/fileshare/internal/api/handlers"
	"github.com/bigkaa/fileshare/internal/api/middleware"
	"github.com/bigkaa/fileshare/internal/audit"
	"github.com/bigkaa/fileshare/internal/config"
	"github.com/bigkaa/fileshare/internal/database"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/identity"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/server"
	"github.com/bigkaa/fileshare/internal/service"
	"github.com/bigkaa/fileshare/internal/storage"
)

const cmdImportLegacy = "import-legacy"

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if len(os.Args) > 1 && os.Args[1] == cmdImportLegacy {
		if err := runImportLegacy(ctx, cfg, pool, os.Args[2:], logger); err != nil {
			logger.Error("Ошибка импорта", slog.String("error", err.Error()))
			pool.Close()
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, pool, logger); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		pool.Close()
		os.Exit(1)
	}
	logger.Info("fileshare остановлен")
}

// run собирает зависимости и запускает HTTP-сервер до сигнала завершения.
func run(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) error {
	logger.Info("fileshare запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	// Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт
	// через рабочий пул и видит его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилища содержимого
	blobs, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// 6. Repositories
	fileRepo := repository.NewFileRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	// 7. Справочник пользователей и журнал аудита
	directory := identity.NewDirectory(userRepo, cfg.IdentityCacheSize, cfg.IdentityCacheTTL, logger)
	journal := audit.NewJournal(auditRepo, logger)

	// 8. Services
	accessSvc := service.NewAccessService(fileRepo, directory, journal, journal,
		service.AccessConfig{
			PublicBaseURL: cfg.PublicBaseURL,
			ShareLinkTTL:  cfg.ShareLinkTTL,
		},
		logger,
	)
	transferSvc := service.NewTransferService(fileRepo, blobs, journal,
		service.TransferConfig{
			Policy: service.UploadPolicy{
				MaxFiles:          cfg.UploadMaxFiles,
				MaxFileSize:       cfg.UploadMaxFileSize,
				AllowedExtensions: cfg.UploadAllowedExtensions,
			},
			APIBaseURL:    cfg.APIBaseURL,
			PreviewURLTTL: cfg.PreviewURLTTL,
		},
		logger,
	)

	// 9. topologymetrics
	depCfg := service.DephealthConfig{
		ServiceID:     "fileshare",
		Group:         cfg.DephealthGroup,
		PgConnURL:     fmt.Sprintf("postgres://%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName),
		CheckInterval: cfg.DephealthCheckInterval,
	}
	if cfg.S3Endpoint != "" {
		depCfg.ObjectStoreURL = cfg.S3Endpoint
		depCfg.ObjectStoreHealthPath = cfg.S3HealthPath
	}
	depSvc, err := service.NewDephealthService(depCfg, pgDB, logger)
	if err != nil {
		return fmt.Errorf("создание dephealth: %w", err)
	}
	if err := depSvc.Start(ctx); err != nil {
		return fmt.Errorf("запуск dephealth: %w", err)
	}
	defer depSvc.Stop()

	// 10. Health и API handlers
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		storage.NewReadinessChecker(blobs),
	)
	apiHandler := handlers.NewAPIHandler(healthHandler, accessSvc, transferSvc,
		handlers.UploadLimits{MaxFiles: cfg.UploadMaxFiles, MaxFileSize: cfg.UploadMaxFileSize},
		logger,
	)

	// 11. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTConfig{
		JWKSURL:             cfg.JWTJWKSURL,
		HS256Secret:         cfg.JWTHS256Secret,
		Issuer:              cfg.JWTIssuer,
		Leeway:              cfg.JWTLeeway,
		JWKSClientTimeout:   cfg.JWKSClientTimeout,
		JWKSRefreshInterval: cfg.JWKSRefreshInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("создание JWT middleware: %w", err)
	}
	logger.Info("JWT middleware инициализирован",
		slog.Bool("jwks", cfg.JWTJWKSURL != ""),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. HTTP-сервер: логирование, метрики, аутентификация (кроме health и
	// metrics), затем синхронизация атрибутов пользователя из токена
	srv := server.New(cfg, logger, apiHandler,
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
		server.JWTAuthWithExclusions(jwtAuth.Middleware(), handlers.PathHealthPrefix, handlers.PathMetrics),
		middleware.IdentitySync(directory, logger),
	)

	return srv.Run(ctx)
}

// buildStorage создаёт локальное хранилище, S3 (если задан bucket) и Router.
func buildStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.Router, error) {
	local, err := storage.NewLocalStore(cfg.LocalDataDir)
	if err != nil {
		return nil, fmt.Errorf("локальное хранилище: %w", err)
	}

	var remote storage.Backend
	if cfg.S3Bucket != "" {
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			KeyPrefix:       cfg.S3KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("клиент S3: %w", err)
		}
		remote = storage.NewS3Store(client, cfg.S3Bucket, cfg.S3KeyPrefix)
		logger.Info("Объектное хранилище подключено",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("endpoint", cfg.S3Endpoint),
		)
	}

	primary := model.StorageLocal
	if cfg.StorageBackend == config.StorageBackendS3 {
		primary = model.StorageRemote
	}

	router, err := storage.NewRouter(local, remote, primary, cfg.StorageFallbackLocal, logger)
	if err != nil {
		return nil, fmt.Errorf("маршрутизатор хранилищ: %w", err)
	}
	return router, nil
}

// runImportLegacy выполняет подкоманду import-legacy <file>.
func runImportLegacy(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, args []string, logger *slog.Logger) error {
	if len(args) != 1 {
		return fmt.Errorf("использование: fileshare %s <file.jsonl>", cmdImportLegacy)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("открытие выгрузки: %w", err)
	}
	defer f.Close()

	importer := service.NewLegacyImporter(repository.NewFileRepository(pool), cfg.LocalDataDir, logger)
	stats, err := importer.Import(ctx, f)
	if err != nil {
		return err
	}

	logger.Info("Импорт завершён",
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
	)
	return nil
}
