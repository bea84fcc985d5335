package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// BackendReadinessChecker: проверка backend API через GET {base}/health.
type BackendReadinessChecker struct {
	healthURL string
	client    *http.Client
}

// NewBackendReadinessChecker создаёт checker backend API.
// client: тот же транспорт, что у API-клиента (CA, таймаут).
func NewBackendReadinessChecker(baseURL string, client *http.Client) *BackendReadinessChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendReadinessChecker{
		healthURL: strings.TrimRight(baseURL, "/") + "/health",
		client:    client,
	}
}

// CheckReady возвращает ok для 2xx, fail для 5xx или сетевой ошибки, иначе degraded.
func (b *BackendReadinessChecker) CheckReady(ctx context.Context) (status, message string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.healthURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("API недоступен: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return statusOK, "API доступен"
	case resp.StatusCode >= 500:
		return statusFail, fmt.Sprintf("API вернул статус %d", resp.StatusCode)
	default:
		return statusDegraded, fmt.Sprintf("API вернул статус %d", resp.StatusCode)
	}
}

// KeycloakReadinessChecker: проверка доступности Keycloak через JWKS.
type KeycloakReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewKeycloakReadinessChecker создаёт checker доступности Keycloak.
func NewKeycloakReadinessChecker(jwksURL string, client *http.Client) *KeycloakReadinessChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &KeycloakReadinessChecker{
		jwksURL: jwksURL,
		client:  client,
	}
}

// CheckReady проверяет доступность JWKS endpoint Keycloak.
func (k *KeycloakReadinessChecker) CheckReady(ctx context.Context) (status, message string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // G704: URL из конфигурации Keycloak
	if err != nil {
		return statusFail, fmt.Sprintf("Keycloak JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("Keycloak JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return statusDegraded, fmt.Sprintf("Keycloak JWKS: невалидный JSON: %v", err)
	}

	if len(jwksResp.Keys) == 0 {
		return statusDegraded, "Keycloak JWKS: нет ключей"
	}

	return statusOK, fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
