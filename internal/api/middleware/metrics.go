// metrics.go: Prometheus HTTP метрики веб-фронтенда.
// Регистрирует метрики: rw_http_requests_total, rw_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rw_http_requests_total",
			Help: "Общее количество HTTP-запросов к веб-фронтенду Resumitory",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rw_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к веб-фронтенду Resumitory в секундах",
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

			// Идентификаторы в пути заменяются шаблонами, чтобы не раздувать кардинальность
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter: обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Коллекции фрагментов и имена их статических подпутей.
var partialStatic = map[string]map[string]bool{
	"applications": {"quick-add": true, "new": true},
	"resumes":      {},
	"forms":        {},
}

// normalizePath приводит путь к шаблону маршрута.
// /partials/applications/42/status → /partials/applications/{id}/status
// /partials/forms/3f2a.../full     → /partials/forms/{token}/full
// /static/css/app.css              → /static/*
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/static/") {
		return "/static/*"
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "partials" {
		return path
	}
	static, ok := partialStatic[segments[1]]
	if !ok || static[segments[2]] {
		return path
	}

	placeholder := "{id}"
	if segments[1] == "forms" {
		placeholder = "{token}"
	}
	segments[2] = placeholder
	return "/" + strings.Join(segments, "/")
}
