package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// Prometheus-метрики хранилища.
var fallbackWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fs_storage_fallback_writes_total",
	Help: "Количество записей на локальный диск из-за недоступности основного хранилища.",
})

// Router выбирает backend: для записи — основной (с опциональным
// переходом на локальный диск), для чтения и удаления — по виду handle.
type Router struct {
	backends      map[model.StorageKind]Backend
	primary       Backend
	fallbackLocal bool
	logger        *slog.Logger
}

// NewRouter создаёт Router.
// local обязателен; remote может быть nil, если объектное хранилище не настроено.
// primary — вид хранилища для новых загрузок.
func NewRouter(local, remote Backend, primary model.StorageKind, fallbackLocal bool, logger *slog.Logger) (*Router, error) {
	if local == nil {
		return nil, errors.New("локальное хранилище обязательно")
	}

	backends := map[model.StorageKind]Backend{model.StorageLocal: local}
	if remote != nil {
		backends[model.StorageRemote] = remote
	}

	p, ok := backends[primary]
	if !ok {
		return nil, fmt.Errorf("основное хранилище %q не настроено", primary)
	}

	return &Router{
		backends:      backends,
		primary:       p,
		fallbackLocal: fallbackLocal,
		logger:        logger.With(slog.String("component", "storage_router")),
	}, nil
}

// Put записывает содержимое в основное хранилище. Если основное —
// удалённое, оно недоступно и разрешён fallback, запись идёт на локальный
// диск. Повтор возможен только для io.Seeker: частично прочитанный поток
// повторно не отправить.
func (r *Router) Put(ctx context.Context, body io.Reader, size int64, name, contentType string) (*PutResult, error) {
	res, err := r.primary.Put(ctx, body, size, name, contentType)
	if err == nil {
		return res, nil
	}

	if !r.fallbackLocal || r.primary.Kind() != model.StorageRemote || !errors.Is(err, ErrUnavailable) {
		return nil, err
	}

	seeker, ok := body.(io.Seeker)
	if !ok {
		return nil, err
	}
	if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
		return nil, err
	}

	r.logger.Warn("Основное хранилище недоступно, запись на локальный диск",
		slog.String("name", name),
		slog.String("error", err.Error()),
	)
	fallbackWritesTotal.Inc()

	return r.backends[model.StorageLocal].Put(ctx, body, size, name, contentType)
}

// Open открывает содержимое в хранилище, указанном handle.
func (r *Router) Open(ctx context.Context, h model.StorageHandle, rangeHeader string) (*Object, error) {
	b, err := r.backendFor(h)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, h, rangeHeader)
}

// Delete удаляет содержимое в хранилище, указанном handle.
func (r *Router) Delete(ctx context.Context, h model.StorageHandle) error {
	b, err := r.backendFor(h)
	if err != nil {
		return err
	}
	return b.Delete(ctx, h)
}

// Stat возвращает размер содержимого.
func (r *Router) Stat(ctx context.Context, h model.StorageHandle) (int64, error) {
	b, err := r.backendFor(h)
	if err != nil {
		return 0, err
	}
	return b.Stat(ctx, h)
}

// PresignGet выдаёт временный URL, если хранилище handle это умеет.
func (r *Router) PresignGet(ctx context.Context, h model.StorageHandle, filename string, ttl time.Duration) (string, error) {
	b, err := r.backendFor(h)
	if err != nil {
		return "", err
	}
	p, ok := b.(Presigner)
	if !ok {
		return "", ErrPresignUnsupported
	}
	return p.PresignGet(ctx, h, filename, ttl)
}

// backendFor возвращает backend по виду handle.
func (r *Router) backendFor(h model.StorageHandle) (Backend, error) {
	b, ok := r.backends[h.Kind]
	if !ok {
		return nil, fmt.Errorf("хранилище %q не настроено: %w", h.Kind, ErrUnavailable)
	}
	return b, nil
}
