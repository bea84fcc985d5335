// Пакет apiclient: HTTP-клиент backend API Resumitory.
// Каждый вызов авторизуется access token текущего пользователя,
// любая неудача возвращается как *Error.
// Поддерживает TLS с кастомным CA (RW_API_CA_CERT_PATH) и опциональную
// проверку ответов по OpenAPI-контракту (RW_API_CONTRACT_CHECK).
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// maxResponseBody: ограничение на размер читаемого ответа.
const maxResponseBody = 10 << 20

// TokenProvider: функция, возвращающая access token пользователя
// для запроса с контекстом ctx.
type TokenProvider func(ctx context.Context) (string, error)

// Options: параметры клиента.
type Options struct {
	// BaseURL: корень backend API (например, http://resumitory-api:8000).
	BaseURL string
	// Timeout: таймаут одного HTTP-запроса.
	Timeout time.Duration
	// CACertPath: путь к CA-сертификату (пустая строка: системный пул).
	CACertPath string
	// Contract: проверка ответов по OpenAPI (nil: без проверки).
	Contract *Contract
}

// Client: HTTP-клиент backend API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider TokenProvider
	contract      *Contract
	logger        *slog.Logger
}

// New создаёт клиент backend API.
func New(opts Options, tokenProvider TokenProvider, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("некорректный базовый URL API: %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	if opts.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата API: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат API добавлен в пул доверия",
			slog.String("ca_cert", opts.CACertPath),
		)
	}

	return &Client{
		baseURL:       base.String(),
		httpClient:    httpClient,
		tokenProvider: tokenProvider,
		contract:      opts.Contract,
		logger:        logger.With(slog.String("component", "api_client")),
	}, nil
}

// BaseURL возвращает корень backend API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient возвращает транспорт клиента (CA, таймаут) для служебных проверок.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// request: описание одного вызова API.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// jsonRequest сериализует payload в тело запроса.
func jsonRequest(op, method, path string, payload any) (request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, &Error{Op: op, Err: fmt.Errorf("сериализация тела: %w", err)}
	}
	return request{
		op:          op,
		method:      method,
		path:        path,
		body:        bytes.NewReader(data),
		contentType: "application/json",
	}, nil
}

// do выполняет запрос и декодирует JSON-ответ в out (nil: тело игнорируется).
func (c *Client) do(ctx context.Context, r request, out any) error {
	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	body := r.body
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return &Error{Op: r.op, Err: fmt.Errorf("создание запроса: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	if c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			return &Error{Op: r.op, StatusCode: http.StatusUnauthorized, Err: fmt.Errorf("получение токена: %w", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации API
	if err != nil {
		return &Error{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &Error{Op: r.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("чтение ответа: %w", err)}
	}

	c.logger.Debug("Запрос к API выполнен",
		slog.String("op", r.op),
		slog.String("method", r.method),
		slog.String("path", r.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if c.contract != nil {
		c.contract.Observe(ctx, req, resp.StatusCode, resp.Header, payload)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:         r.op,
			StatusCode: resp.StatusCode,
			Message:    detailMessage(payload),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &Error{Op: r.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("декодирование ответа: %w", err)}
	}
	return nil
}
