// Пакет config: загрузка и валидация конфигурации веб-фронтенда Resumitory
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации веб-фронтенда.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Backend API ---

	// Базовый URL REST API трекера
	APIBaseURL string
	// Таймаут одного запроса к API
	APITimeout time.Duration
	// Путь к CA-сертификату API (опционально)
	APICACertPath string
	// Проверять ответы API по OpenAPI-контракту
	APIContractCheck bool

	// --- Keycloak ---

	// URL Keycloak для server-to-server запросов
	KeycloakURL string
	// URL Keycloak для redirect браузера
	KeycloakBrowserURL string
	// Имя realm
	KeycloakRealm string
	// Client ID публичного OIDC-клиента
	OIDCClientID string
	// Таймаут запросов к token endpoint
	OIDCClientTimeout time.Duration

	// --- JWT ---

	// Issuer (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Допустимое расхождение часов
	JWTLeeway time.Duration
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration

	// --- Сессии ---

	// Ключ шифрования session cookie. Пустой: случайный ключ на время жизни процесса
	SessionSecret string

	// --- Кэш и формы ---

	// Максимум записей кэша запросов
	CacheSize int
	// Время жизни записи кэша
	CacheTTL time.Duration
	// Время жизни открытой формы
	FormTTL time.Duration
	// Интервал keepalive SSE-потока
	SSEKeepalive time.Duration

	// --- Мониторинг зависимостей ---

	// Группа topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// RW_PORT: порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("RW_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("RW_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RW_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// RW_LOG_LEVEL: уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RW_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RW_LOG_LEVEL: %w", err)
	}

	// RW_LOG_FORMAT: формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("RW_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RW_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Backend API ---

	// RW_API_BASE_URL: обязательный
	cfg.APIBaseURL, err = getEnvRequired("RW_API_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	cfg.APITimeout, err = getEnvDuration("RW_API_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RW_API_TIMEOUT: %w", err)
	}

	cfg.APICACertPath = getEnvDefault("RW_API_CA_CERT_PATH", "")

	cfg.APIContractCheck, err = getEnvBool("RW_API_CONTRACT_CHECK", false)
	if err != nil {
		return nil, fmt.Errorf("RW_API_CONTRACT_CHECK: %w", err)
	}

	// --- Keycloak ---

	// RW_KEYCLOAK_URL: обязательный
	cfg.KeycloakURL, err = getEnvRequired("RW_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")

	// RW_KEYCLOAK_BROWSER_URL: адрес, доступный браузеру (по умолчанию RW_KEYCLOAK_URL)
	cfg.KeycloakBrowserURL = strings.TrimRight(getEnvDefault("RW_KEYCLOAK_BROWSER_URL", cfg.KeycloakURL), "/")

	cfg.KeycloakRealm = getEnvDefault("RW_KEYCLOAK_REALM", "resumitory")
	cfg.OIDCClientID = getEnvDefault("RW_OIDC_CLIENT_ID", "resumitory-web")

	cfg.OIDCClientTimeout, err = getEnvDuration("RW_OIDC_CLIENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RW_OIDC_CLIENT_TIMEOUT: %w", err)
	}

	// --- JWT ---

	cfg.JWTIssuer = getEnvDefault("RW_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWTJWKSURL = getEnvDefault("RW_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWTLeeway, err = getEnvDuration("RW_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RW_JWT_LEEWAY: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("RW_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RW_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Сессии ---

	cfg.SessionSecret = getEnvDefault("RW_SESSION_SECRET", "")

	// --- Кэш и формы ---

	cfg.CacheSize, err = getEnvInt("RW_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("RW_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("RW_CACHE_SIZE: значение %d должно быть положительным", cfg.CacheSize)
	}

	cfg.CacheTTL, err = getEnvDuration("RW_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RW_CACHE_TTL: %w", err)
	}

	cfg.FormTTL, err = getEnvDuration("RW_FORM_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RW_FORM_TTL: %w", err)
	}

	cfg.SSEKeepalive, err = getEnvDuration("RW_SSE_KEEPALIVE", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RW_SSE_KEEPALIVE: %w", err)
	}
	if cfg.SSEKeepalive <= 0 {
		return nil, fmt.Errorf("RW_SSE_KEEPALIVE: значение %v должно быть положительным", cfg.SSEKeepalive)
	}

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = getEnvDefault("RW_DEPHEALTH_GROUP", "resumitory")

	cfg.DephealthCheckInterval, err = getEnvDuration("RW_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RW_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("RW_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RW_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SecureCookies: cookie только по HTTPS, если Keycloak открыт браузеру по HTTPS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.KeycloakBrowserURL, "https://")
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false)", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
