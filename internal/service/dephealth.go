// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Мониторятся:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - S3-совместимое хранилище — HTTP checker к health endpoint (если задан FS_S3_ENDPOINT)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках
	Group string
	// PgConnURL — URL PostgreSQL (для лейблов, не для подключения)
	PgConnURL string
	// ObjectStoreURL — endpoint объектного хранилища (пустой — не мониторится)
	ObjectStoreURL string
	// ObjectStoreHealthPath — путь health endpoint хранилища
	ObjectStoreHealthPath string
	CheckInterval         time.Duration
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
// db — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool().
func NewDephealthService(cfg DephealthConfig, db *sql.DB, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := make([]dephealth.Option, 0, 3+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dephealth.FromURL(cfg.PgConnURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		),
	)

	if cfg.ObjectStoreURL != "" {
		osDepOpts := []dephealth.DependencyOption{
			dephealth.FromURL(cfg.ObjectStoreURL),
			dephealth.WithHTTPHealthPath(cfg.ObjectStoreHealthPath),
			dephealth.CheckInterval(cfg.CheckInterval),
			// Загрузки могут уйти на локальный диск, скачивание локальных файлов работает
			dephealth.Critical(false),
		}
		if parsed, err := url.Parse(cfg.ObjectStoreURL); err == nil && parsed.Scheme == "https" {
			osDepOpts = append(osDepOpts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		opts = append(opts, dephealth.HTTP("object-storage", osDepOpts...))
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
