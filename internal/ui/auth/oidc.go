// oidc.go: OIDC-клиент Keycloak: Authorization Code Flow с PKCE (RFC 7636),
// регистрация, обновление токенов, выход.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// scopes: запрашиваемые OIDC scope.
const scopes = "openid profile email"

// OIDCClient: public client Keycloak (без client_secret).
type OIDCClient struct {
	clientID     string
	authorizeURL string
	registerURL  string
	tokenURL     string
	logoutURL    string
	issuer       string
	httpClient   *http.Client
}

// OIDCConfig: параметры OIDC-клиента.
type OIDCConfig struct {
	// KeycloakURL: URL Keycloak для server-to-server запросов (token).
	KeycloakURL string
	// BrowserKeycloakURL: URL Keycloak для redirect браузера.
	// Пустой: используется KeycloakURL.
	BrowserKeycloakURL string
	Realm              string
	ClientID           string
	// HTTPClient: nil означает новый клиент с Timeout.
	HTTPClient *http.Client
	// Timeout: таймаут запросов (RW_OIDC_CLIENT_TIMEOUT).
	Timeout time.Duration
}

// NewOIDCClient создаёт OIDC-клиент.
func NewOIDCClient(cfg OIDCConfig) *OIDCClient {
	backendRealm := strings.TrimRight(cfg.KeycloakURL, "/") + "/realms/" + cfg.Realm

	browserBase := cfg.BrowserKeycloakURL
	if browserBase == "" {
		browserBase = cfg.KeycloakURL
	}
	browserOIDC := strings.TrimRight(browserBase, "/") + "/realms/" + cfg.Realm + "/protocol/openid-connect"

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &OIDCClient{
		clientID:     cfg.ClientID,
		authorizeURL: browserOIDC + "/auth",
		registerURL:  browserOIDC + "/registrations",
		tokenURL:     backendRealm + "/protocol/openid-connect/token",
		logoutURL:    browserOIDC + "/logout",
		issuer:       backendRealm,
		httpClient:   httpClient,
	}
}

// Issuer: URL realm (iss в токенах).
func (c *OIDCClient) Issuer() string { return c.issuer }

// PKCEParams: пара code_verifier / code_challenge.
type PKCEParams struct {
	CodeVerifier  string
	CodeChallenge string
}

// GeneratePKCE генерирует PKCE (S256): verifier из 32 случайных байт
// (43 символа base64url), challenge = base64url(SHA-256(verifier)).
func GeneratePKCE() (*PKCEParams, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("ошибка генерации code_verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	return &PKCEParams{
		CodeVerifier:  verifier,
		CodeChallenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// GenerateState генерирует state для защиты от CSRF.
func GenerateState() (string, error) {
	raw := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("ошибка генерации state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// AuthorizeURL: redirect на страницу входа Keycloak.
func (c *OIDCClient) AuthorizeURL(redirectURI, state, codeChallenge string) string {
	return c.authorizeURL + "?" + c.authParams(redirectURI, state, codeChallenge).Encode()
}

// RegistrationURL: redirect на страницу регистрации Keycloak.
// После регистрации Keycloak возвращает на redirectURI с code, как при входе.
func (c *OIDCClient) RegistrationURL(redirectURI, state, codeChallenge string) string {
	return c.registerURL + "?" + c.authParams(redirectURI, state, codeChallenge).Encode()
}

func (c *OIDCClient) authParams(redirectURI, state, codeChallenge string) url.Values {
	return url.Values{
		"client_id":             {c.clientID},
		"response_type":         {"code"},
		"redirect_uri":          {redirectURI},
		"state":                 {state},
		"scope":                 {scopes},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}
}

// LogoutURL: redirect на выход из Keycloak.
func (c *OIDCClient) LogoutURL(idTokenHint, postLogoutRedirectURI string) string {
	params := url.Values{
		"client_id":                {c.clientID},
		"post_logout_redirect_uri": {postLogoutRedirectURI},
	}
	if idTokenHint != "" {
		params.Set("id_token_hint", idTokenHint)
	}
	return c.logoutURL + "?" + params.Encode()
}

// TokenResponse: ответ token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  //nolint:gosec // G117: токен OAuth2
	RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: токен OAuth2
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
}

// ExpiresAt: момент истечения access token относительно now.
func (t *TokenResponse) ExpiresAt(now time.Time) int64 {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second).Unix()
}

// TokenError: ошибка token endpoint.
type TokenError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *TokenError) Error() string {
	if e.Description == "" {
		return "token endpoint: " + e.Code
	}
	return fmt.Sprintf("token endpoint: %s (%s)", e.Code, e.Description)
}

// ExchangeCode обменивает authorization code на токены.
func (c *OIDCClient) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenResponse, error) {
	return c.doTokenRequest(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.clientID},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	})
}

// RefreshTokens обновляет access token по refresh token.
func (c *OIDCClient) RefreshTokens(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.doTokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"refresh_token": {refreshToken},
	})
}

func (c *OIDCClient) doTokenRequest(ctx context.Context, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации OIDC
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var tokenErr TokenError
		if jsonErr := json.Unmarshal(body, &tokenErr); jsonErr == nil && tokenErr.Code != "" {
			return nil, &tokenErr
		}
		return nil, fmt.Errorf("token endpoint вернул статус %d", resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("ошибка парсинга token response: %w", err)
	}
	return &tokenResp, nil
}
