// Пакет identity — справочник пользователей: разрешение email в
// идентификатор при выдаче доступа и отображаемые атрибуты (имя, email)
// для списков прав. Отображаемые атрибуты кэшируются в LRU с TTL;
// права доступа здесь не хранятся и не кэшируются.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
)

// ErrUserNotFound — пользователь с указанным email неизвестен.
var ErrUserNotFound = errors.New("пользователь не найден")

// Prometheus-метрики кэша справочника.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_identity_cache_hits_total",
		Help: "Попадания в кэш отображаемых атрибутов пользователей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_identity_cache_misses_total",
		Help: "Промахи кэша отображаемых атрибутов пользователей.",
	})
)

// Directory — справочник пользователей поверх таблицы users.
type Directory struct {
	users  repository.UserRepository
	cache  *expirable.LRU[string, model.Identity]
	logger *slog.Logger
}

// NewDirectory создаёт справочник.
// cacheSize — максимальное количество записей, ttl — время жизни записи.
func NewDirectory(users repository.UserRepository, cacheSize int, ttl time.Duration, logger *slog.Logger) *Directory {
	return &Directory{
		users:  users,
		cache:  expirable.NewLRU[string, model.Identity](cacheSize, nil, ttl),
		logger: logger.With(slog.String("component", "identity_directory")),
	}
}

// Observe запоминает пользователя, прошедшего аутентификацию.
// Запись в БД выполняется только если атрибуты изменились с последнего
// обращения (или запись вытеснена из кэша).
func (d *Directory) Observe(ctx context.Context, u model.Identity) error {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		return fmt.Errorf("пустой идентификатор пользователя")
	}

	if cached, ok := d.cache.Get(u.ID); ok && cached == u {
		return nil
	}

	if err := d.users.Upsert(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			d.logger.Warn("Email уже принадлежит другому пользователю",
				slog.String("user_id", u.ID),
				slog.String("email", u.Email),
			)
		}
		return fmt.Errorf("сохранение пользователя %s: %w", u.ID, err)
	}

	d.cache.Add(u.ID, u)
	return nil
}

// ResolveEmail находит пользователя по email (без учёта регистра).
func (d *Directory) ResolveEmail(ctx context.Context, email string) (model.Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.Identity{}, ErrUserNotFound
	}

	u, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, ErrUserNotFound
		}
		return model.Identity{}, fmt.Errorf("поиск пользователя по email: %w", err)
	}

	d.cache.Add(u.ID, *u)
	return *u, nil
}

// Lookup возвращает отображаемые атрибуты для ids в том же порядке.
// Неизвестные пользователи возвращаются только с ID.
func (d *Directory) Lookup(ctx context.Context, ids []string) ([]model.Identity, error) {
	found := make(map[string]model.Identity, len(ids))
	var missing []string

	for _, id := range ids {
		if u, ok := d.cache.Get(id); ok {
			cacheHitsTotal.Inc()
			found[id] = u
			continue
		}
		cacheMissesTotal.Inc()
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		users, err := d.users.ListByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("получение пользователей: %w", err)
		}
		for _, u := range users {
			found[u.ID] = u
			d.cache.Add(u.ID, u)
		}
	}

	result := make([]model.Identity, 0, len(ids))
	for _, id := range ids {
		u, ok := found[id]
		if !ok {
			u = model.Identity{ID: id}
		}
		result = append(result, u)
	}
	return result, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
