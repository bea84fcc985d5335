// verifier.go: проверка подписи и claims JWT Keycloak через JWKS.
// Используется при входе: сессия создаётся только из проверенного токена.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken: токен не прошёл проверку.
var ErrInvalidToken = errors.New("невалидный или просроченный токен")

// Claims: данные пользователя из проверенного токена.
type Claims struct {
	Subject           string
	PreferredUsername string
	Email             string
	Name              string
	ExpiresAt         time.Time
}

// keycloakClaims: claims Keycloak access token.
type keycloakClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
}

// TokenVerifier проверяет JWT: RS256, exp обязателен, iss совпадает.
type TokenVerifier struct {
	jwks   keyfunc.Keyfunc
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

// VerifierConfig: параметры TokenVerifier.
type VerifierConfig struct {
	JWKSURL string
	Issuer  string
	// HTTPClient: клиент для загрузки JWKS (с CA при необходимости).
	HTTPClient *http.Client
	// RefreshInterval: интервал обновления ключей (RW_JWKS_REFRESH_INTERVAL).
	RefreshInterval time.Duration
	// Leeway: допустимое расхождение часов (RW_JWT_LEEWAY).
	Leeway time.Duration
}

// NewTokenVerifier создаёт TokenVerifier с фоновым обновлением JWKS.
// Старт не требует доступности Keycloak: первая загрузка ключей
// выполняется без ошибки, недоступность видна в readiness.
func NewTokenVerifier(ctx context.Context, cfg VerifierConfig, logger *slog.Logger) (*TokenVerifier, error) {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    client,
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", cfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewTokenVerifierWithKeyfunc(kf, cfg.Issuer, cfg.Leeway, logger), nil
}

// NewTokenVerifierWithKeyfunc создаёт TokenVerifier с готовой keyfunc (тесты).
func NewTokenVerifierWithKeyfunc(kf keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *TokenVerifier {
	return &TokenVerifier{
		jwks:   kf,
		issuer: issuer,
		leeway: leeway,
		logger: logger.With(slog.String("component", "token_verifier")),
	}
}

// Verify проверяет токен и возвращает claims пользователя.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	kc := &keycloakClaims{}
	token, err := jwt.ParseWithClaims(raw, kc, v.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		v.logger.Debug("JWT валидация не пройдена", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, err := kc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: отсутствует sub", ErrInvalidToken)
	}

	claims := &Claims{
		Subject:           sub,
		PreferredUsername: kc.PreferredUsername,
		Email:             kc.Email,
		Name:              kc.Name,
	}
	if kc.ExpiresAt != nil {
		claims.ExpiresAt = kc.ExpiresAt.Time
	}
	return claims, nil
}

// NewSession собирает сессию из ответа token endpoint и проверенных claims.
func NewSession(tokens *TokenResponse, claims *Claims, now time.Time) *SessionData {
	return &SessionData{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt(now),
		Subject:      claims.Subject,
		Username:     claims.PreferredUsername,
		Email:        claims.Email,
		DisplayName:  claims.Name,
	}
}
