// auth.go: вход и регистрация через Keycloak OIDC
// (Authorization Code + PKCE), выход из сессии.
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dhanushranga1/Resumitory/internal/ui/auth"
	"github.com/Dhanushranga1/Resumitory/internal/ui/pages"
)

// Имя cookie для хранения PKCE state (code_verifier + state).
const stateCookieName = "resumitory_auth_state"

// stateCookieMaxAge: максимальный возраст state cookie (5 минут).
const stateCookieMaxAge = 5 * 60

// stateCookiePath: state cookie нужен только /auth/callback.
const stateCookiePath = "/auth"

// Маршруты после входа и выхода.
const (
	homePath     = "/dashboard"
	callbackPath = "/auth/callback"
)

// Ключи ошибок страницы входа (параметр ?error=).
var loginErrors = map[string]string{
	"failed":  "login.error_failed",
	"expired": "login.error_expired",
}

// TokenVerifier проверяет access token и извлекает claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// AuthHandler: обработчики аутентификации.
type AuthHandler struct {
	oidcClient     *auth.OIDCClient
	sessionManager *auth.SessionManager
	verifier       TokenVerifier
	notifier       *auth.Notifier
	pages          *pages.Renderer
	logger         *slog.Logger
}

// NewAuthHandler создаёт AuthHandler.
func NewAuthHandler(
	oidcClient *auth.OIDCClient,
	sessionManager *auth.SessionManager,
	verifier TokenVerifier,
	notifier *auth.Notifier,
	renderer *pages.Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		oidcClient:     oidcClient,
		sessionManager: sessionManager,
		verifier:       verifier,
		notifier:       notifier,
		pages:          renderer,
		logger:         logger.With(slog.String("component", "ui_auth")),
	}
}

// stateData: данные state cookie на время auth flow.
type stateData struct {
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
}

// HandleLoginPage обрабатывает GET / и GET /login.
// Пользователь с действующей сессией сразу попадает на /dashboard.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session, err := h.sessionManager.GetSessionFromRequest(r); err == nil && session != nil && !session.IsExpired() {
		http.Redirect(w, r, homePath, http.StatusFound)
		return
	}
	data := pages.LoginData{ErrorKey: loginErrors[r.URL.Query().Get("error")]}
	render(w, r, h.logger, h.pages.Login(data), http.StatusOK)
}

// HandleStart обрабатывает GET /auth/start: redirect на форму входа Keycloak.
func (h *AuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, h.oidcClient.AuthorizeURL)
}

// HandleSignup обрабатывает GET /signup: redirect на регистрацию Keycloak.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, h.oidcClient.RegistrationURL)
}

// startFlow генерирует PKCE и state, сохраняет их в short-lived cookie
// и перенаправляет на endpoint Keycloak.
func (h *AuthHandler) startFlow(w http.ResponseWriter, r *http.Request, endpoint func(redirectURI, state, challenge string) string) {
	pkce, err := auth.GeneratePKCE()
	if err != nil {
		h.logger.Error("Ошибка генерации PKCE", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("Ошибка генерации state", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	sdJSON, _ := json.Marshal(stateData{State: state, CodeVerifier: pkce.CodeVerifier})
	h.setStateCookie(w, base64.URLEncoding.EncodeToString(sdJSON), stateCookieMaxAge)

	target := endpoint(buildBaseURL(r)+callbackPath, state, pkce.CodeChallenge)
	h.logger.Debug("Redirect на Keycloak", slog.String("url", target))
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleCallback обрабатывает GET /auth/callback: проверяет state,
// обменивает code на токены, проверяет access token по JWKS
// и создаёт сессию.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		h.logger.Warn("Keycloak вернул ошибку авторизации",
			slog.String("error", errCode),
			slog.String("description", q.Get("error_description")),
		)
		h.failLogin(w, r)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.logger.Warn("Отсутствует code или state")
		h.failLogin(w, r)
		return
	}

	sd, err := h.readStateCookie(r)
	if err != nil {
		h.logger.Warn("Некорректный state cookie", slog.String("error", err.Error()))
		h.failLogin(w, r)
		return
	}
	// State одноразовый
	h.setStateCookie(w, "", -1)

	if sd.State != state {
		h.logger.Warn("State mismatch (возможная CSRF атака)")
		h.failLogin(w, r)
		return
	}

	ctx := r.Context()
	tokens, err := h.oidcClient.ExchangeCode(ctx, code, buildBaseURL(r)+callbackPath, sd.CodeVerifier)
	if err != nil {
		h.logger.Error("Ошибка обмена code на tokens", slog.String("error", err.Error()))
		h.failLogin(w, r)
		return
	}

	claims, err := h.verifier.Verify(ctx, tokens.AccessToken)
	if err != nil {
		h.logger.Error("Access token не прошёл проверку", slog.String("error", err.Error()))
		h.failLogin(w, r)
		return
	}

	session := auth.NewSession(tokens, claims, time.Now())
	if err := h.sessionManager.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка установки session cookie", slog.String("error", err.Error()))
		h.failLogin(w, r)
		return
	}
	h.notifier.Publish(auth.SessionEvent{Kind: auth.SessionStarted, Subject: session.Subject})

	h.logger.Info("Пользователь аутентифицирован",
		slog.String("username", session.Username),
	)
	http.Redirect(w, r, homePath, http.StatusFound)
}

// HandleLogout обрабатывает POST /logout: завершает сессию
// и перенаправляет на logout Keycloak.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if session, err := h.sessionManager.GetSessionFromRequest(r); err == nil && session != nil {
		h.notifier.Publish(auth.SessionEvent{Kind: auth.SessionEnded, Subject: session.Subject})
		h.logger.Info("Пользователь выполняет logout", slog.String("username", session.Username))
	}
	h.sessionManager.ClearSessionCookie(w)

	http.Redirect(w, r, h.oidcClient.LogoutURL("", buildBaseURL(r)+"/login"), http.StatusFound)
}

// failLogin возвращает на страницу входа с общим сообщением об ошибке.
func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login?error=failed", http.StatusFound)
}

func (h *AuthHandler) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     stateCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.sessionManager.Secure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) readStateCookie(r *http.Request) (*stateData, error) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return nil, err
	}
	raw, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, err
	}
	var sd stateData
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

// buildBaseURL формирует scheme://host с учётом X-Forwarded-* от reverse proxy.
func buildBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwdHost := r.Header.Get("X-Forwarded-Host"); fwdHost != "" {
		host = fwdHost
	}
	return scheme + "://" + host
}
