// metrics.go — Prometheus HTTP метрики fileshare.
// Регистрирует метрики: fs_http_requests_total, fs_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики fileshare
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fs_http_requests_total",
			Help: "Общее количество HTTP-запросов к fileshare",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fs_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к fileshare в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// fileActions — допустимые подресурсы /api/v1/files/{id}/...
var fileActions = map[string]bool{
	"download":    true,
	"preview":     true,
	"share":       true,
	"link":        true,
	"permissions": true,
	"history":     true,
}

// normalizePath заменяет идентификаторы в пути на шаблоны:
// /api/v1/files/a1b2c3d4-.../permissions/u-42 → /api/v1/files/{id}/permissions/{user_id}
// /api/v1/share/9f86d0... → /api/v1/share/{token}
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics", "/api/v1/files":
		return path
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "api" || segments[1] != "v1" {
		return "other"
	}

	switch segments[2] {
	case "share":
		if len(segments) == 4 {
			return "/api/v1/share/{token}"
		}
	case "files":
		if len(segments) < 4 || uuid.Validate(segments[3]) != nil {
			break
		}
		segments[3] = "{id}"
		switch {
		case len(segments) == 4:
			return "/" + strings.Join(segments, "/")
		case len(segments) == 5 && fileActions[segments[4]]:
			return "/" + strings.Join(segments, "/")
		case len(segments) == 6 && segments[4] == "permissions":
			segments[5] = "{user_id}"
			return "/" + strings.Join(segments, "/")
		}
	}

	return "other"
}
