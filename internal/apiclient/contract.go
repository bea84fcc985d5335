// contract.go: проверка ответов backend по встроенному OpenAPI-контракту.
// Нарушения логируются и считаются в метрике, но не прерывают запрос:
// фронтенд продолжает работать с ответом как есть.
package apiclient

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//go:embed openapi.yaml
var contractYAML []byte

// contractViolationsTotal: ответы backend, не прошедшие проверку контракта.
var contractViolationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rw_api_contract_violations_total",
		Help: "Количество ответов backend API, не соответствующих OpenAPI-контракту",
	},
	[]string{"operation"},
)

// Contract: OpenAPI-контракт backend API с маршрутизатором для поиска операций.
type Contract struct {
	router routers.Router
	logger *slog.Logger
}

// NewContract загружает встроенный контракт и привязывает его к baseURL.
func NewContract(baseURL string, logger *slog.Logger) (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI-контракта: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI-контракта: %w", err)
	}

	doc.Servers = openapi3.Servers{&openapi3.Server{URL: strings.TrimRight(baseURL, "/")}}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("создание маршрутизатора контракта: %w", err)
	}

	return &Contract{
		router: router,
		logger: logger.With(slog.String("component", "api_contract")),
	}, nil
}

// Check проверяет ответ на запрос req по контракту.
func (c *Contract) Check(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error {
	route, pathParams, err := c.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("операция %s %s не описана в контракте: %w", req.Method, req.URL.Path, err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: status,
		Header: header,
		Body:   io.NopCloser(bytes.NewReader(body)),
	}
	return openapi3filter.ValidateResponse(ctx, input)
}

// Observe проверяет ответ и фиксирует нарушение в логе и метрике.
func (c *Contract) Observe(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) {
	err := c.Check(ctx, req, status, header, body)
	if err == nil {
		return
	}

	operation := "unknown"
	if route, _, findErr := c.router.FindRoute(req); findErr == nil && route.Operation != nil {
		operation = route.Operation.OperationID
	}
	contractViolationsTotal.WithLabelValues(operation).Inc()

	c.logger.Warn("Ответ API не соответствует контракту",
		slog.String("operation", operation),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}
