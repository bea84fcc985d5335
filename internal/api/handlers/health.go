// health.go: служебные endpoints веб-фронтенда.
// /health/live: liveness probe (процесс жив)
// /health/ready: readiness probe (backend API + Keycloak доступны)
// /metrics: Prometheus метрики
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dhanushranga1/Resumitory/internal/config"
)

// serviceName: имя сервиса в ответах probes.
const serviceName = "resumitory-web"

// readinessTimeout: общий предел проверки зависимостей.
const readinessTimeout = 5 * time.Second

// Статусы проверок.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker: интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady(ctx context.Context) (status string, message string)
}

// HealthHandler: обработчик health endpoints.
type HealthHandler struct {
	apiChecker  ReadinessChecker
	kcChecker   ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// apiChecker: backend API, kcChecker: Keycloak.
// Оба могут быть nil (readiness вернёт "fail" для nil зависимостей).
func NewHealthHandler(apiChecker, kcChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		apiChecker:  apiChecker,
		kcChecker:   kcChecker,
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		API      healthCheckResult `json:"api"`
		Keycloak healthCheckResult `json:"keycloak"`
	} `json:"checks"`
}

// HealthLive: liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady: readiness probe. Проверяет backend API и Keycloak.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}
	resp.Checks.API = check(ctx, h.apiChecker)
	resp.Checks.Keycloak = check(ctx, h.kcChecker)
	resp.Status = overallStatus(resp.Checks.API.Status, resp.Checks.Keycloak.Status)

	status := http.StatusOK
	if resp.Status == statusFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// GetMetrics: Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

func check(ctx context.Context, checker ReadinessChecker) healthCheckResult {
	if checker == nil {
		return healthCheckResult{Status: statusFail, Message: "не инициализирован"}
	}
	status, msg := checker.CheckReady(ctx)
	return healthCheckResult{Status: status, Message: msg}
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail: итог fail.
// Если хотя бы одна degraded: итог degraded.
// Иначе: ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
