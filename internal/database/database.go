// Пакет database — подключение к PostgreSQL через pgxpool,
// применение миграций (golang-migrate) и проверка готовности.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // драйвер pgx5:// для golang-migrate
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/fileshare/internal/config"
)

// readinessTimeout — предел ожидания ping в readiness probe.
const readinessTimeout = 3 * time.Second

// Схема реестра: files, audit_log, users.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect создаёт пул подключений к PostgreSQL с размерами из конфигурации
// и проверяет доступность ping в пределах FS_DB_CONNECT_TIMEOUT.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolCfg.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout(cfg))
	defer cancel()

	// Пул подключается лениво: ошибку доступности видно только после ping
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(cfg.DBMaxConns)),
	)

	return pool, nil
}

// connectTimeout возвращает таймаут ping при старте (0 в конфигурации — 10s).
func connectTimeout(cfg *config.Config) time.Duration {
	if cfg.DBConnectTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.DBConnectTimeout
}

// Migrate применяет SQL-миграции из embedded FS (драйвер pgx5).
// Схема в состоянии dirty после предыдущего сбоя считается ошибкой:
// такую базу нужно чинить вручную через migrate force.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}
	if dirty {
		return fmt.Errorf("схема БД в состоянии dirty (версия %d)", version)
	}

	logger.Info("Миграции применены", slog.Uint64("version", uint64(version)))
	return nil
}

// ReadinessChecker — проверка готовности PostgreSQL для /health/ready.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady проверяет подключение через ping. Исчерпанный пул
// (все соединения заняты) отмечается как degraded: запросы ещё
// обслуживаются, но ждут освобождения соединения.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	// Ping сам занимает соединение, поэтому пул проверяется до него.
	stat := c.pool.Stat()
	usage := fmt.Sprintf("соединений занято %d из %d", stat.AcquiredConns(), stat.MaxConns())
	if stat.MaxConns() > 0 && stat.AcquiredConns() >= stat.MaxConns() {
		return "degraded", "пул исчерпан: " + usage
	}

	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", usage
}
