// dephealth.go: мониторинг зависимостей через topologymetrics SDK.
//
// Веб-фронтенд зависит от двух сервисов:
//   - Resumitory API: HTTP checker к /health (critical)
//   - Keycloak: HTTP checker к JWKS endpoint realm (critical)
//
// Метрики app_dependency_* доступны на /metrics.
package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig: параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID: имя вершины графа текущего приложения.
	ServiceID string
	// Group: имя группы в метриках (RW_DEPHEALTH_GROUP).
	Group string
	// APIBaseURL: базовый URL backend API.
	APIBaseURL string
	// KeycloakJWKSURL: URL JWKS endpoint Keycloak.
	KeycloakJWKSURL string
	// CheckInterval: интервал проверки (RW_DEPHEALTH_CHECK_INTERVAL).
	CheckInterval time.Duration
	// TLSSkipVerify: не проверять сертификаты (dev-среда).
	TLSSkipVerify bool
}

// DephealthService: мониторинг зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис; метрики регистрируются
// в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	// /health у Keycloak доступен только на management-порту,
	// поэтому проверяется путь самого JWKS URL.
	kcHealthPath := "/health"
	if parsed, err := url.Parse(cfg.KeycloakJWKSURL); err == nil && parsed.Path != "" {
		kcHealthPath = parsed.Path
	}
	apiHealthPath := "/health"
	if parsed, err := url.Parse(cfg.APIBaseURL); err == nil && parsed.Path != "" && parsed.Path != "/" {
		apiHealthPath = parsed.Path + "/health"
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.HTTP("resumitory-api",
			dephealth.FromURL(cfg.APIBaseURL),
			dephealth.WithHTTPHealthPath(apiHealthPath),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
			dephealth.WithHTTPTLSSkipVerify(cfg.TLSSkipVerify),
		),
		dephealth.HTTP("keycloak-jwks",
			dephealth.FromURL(cfg.KeycloakJWKSURL),
			dephealth.WithHTTPHealthPath(kcHealthPath),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
			dephealth.WithHTTPTLSSkipVerify(cfg.TLSSkipVerify),
		),
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
	ds.logger.Info("Мониторинг зависимостей запущен (Resumitory API + Keycloak)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health: текущее состояние: имя зависимости → ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
