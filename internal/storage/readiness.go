package storage

import (
	"context"
	"time"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// readinessTimeout — таймаут одной проверки хранилища.
const readinessTimeout = 3 * time.Second

// Pinger — backend, умеющий проверить свою доступность.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker — проверка основного хранилища для /health/ready.
// Недоступное удалённое хранилище при разрешённом fallback и
// доступном локальном диске даёт "degraded": загрузки продолжаются.
type ReadinessChecker struct {
	router *Router
}

// NewReadinessChecker создаёт проверку готовности хранилища.
func NewReadinessChecker(router *Router) *ReadinessChecker {
	return &ReadinessChecker{router: router}
}

// CheckReady пингует основное хранилище.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	primary := c.router.primary
	err := ping(ctx, primary)
	if err == nil {
		return "ok", "основное хранилище доступно: " + string(primary.Kind())
	}

	if c.router.fallbackLocal && primary.Kind() == model.StorageRemote {
		if lerr := ping(ctx, c.router.backends[model.StorageLocal]); lerr == nil {
			return "degraded", "объектное хранилище недоступно, загрузки идут на локальный диск: " + err.Error()
		}
	}
	return "fail", err.Error()
}

// ping проверяет backend, если он реализует Pinger.
func ping(ctx context.Context, b Backend) error {
	p, ok := b.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}
