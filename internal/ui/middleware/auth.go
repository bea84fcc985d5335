// Пакет middleware: HTTP middleware веб-интерфейса Resumitory.
// auth.go: проверка сессии (cookie), авто-refresh токенов,
// доступ к токену и текущему пользователю из контекста.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/Dhanushranga1/Resumitory/internal/api/errors"
	"github.com/Dhanushranga1/Resumitory/internal/ui/auth"
)

// LoginPath: страница входа для redirect неаутентифицированных запросов.
const LoginPath = "/login"

// ErrNoSession: в контексте запроса нет сессии.
var ErrNoSession = errors.New("сессия отсутствует")

// contextKey: тип для ключей контекста UI.
type contextKey string

const (
	// ContextKeyUISession: данные сессии в контексте запроса.
	ContextKeyUISession contextKey = "ui_session"
	// contextKeyUIAuth: middleware, пропустивший запрос.
	contextKeyUIAuth contextKey = "ui_auth"
)

// TokenRefresher обновляет токены по refresh token.
type TokenRefresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
}

// UIAuth: middleware аутентификации страниц и partial-запросов.
// Без сессии: страницы получают redirect на /login,
// HTMX и SSE запросы: JSON 401 с заголовком HX-Redirect.
type UIAuth struct {
	sessionManager *auth.SessionManager
	refresher      TokenRefresher
	notifier       *auth.Notifier
	now            func() time.Time
	logger         *slog.Logger
}

// NewUIAuth создаёт UIAuth.
func NewUIAuth(
	sessionManager *auth.SessionManager,
	refresher TokenRefresher,
	notifier *auth.Notifier,
	logger *slog.Logger,
) *UIAuth {
	return &UIAuth{
		sessionManager: sessionManager,
		refresher:      refresher,
		notifier:       notifier,
		now:            time.Now,
		logger:         logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware возвращает HTTP middleware проверки сессии.
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := ua.sessionManager.GetSessionFromRequest(r)
			if err != nil {
				ua.logger.Debug("Ошибка чтения сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				ua.sessionManager.ClearSessionCookie(w)
				ua.reject(w, r)
				return
			}
			if session == nil {
				ua.reject(w, r)
				return
			}

			if session.IsExpired() {
				refreshed, refreshErr := ua.refreshSession(r.Context(), session)
				if refreshErr != nil {
					ua.logger.Info("Не удалось обновить сессию",
						slog.String("username", session.Username),
						slog.String("error", refreshErr.Error()),
					)
					ua.sessionManager.ClearSessionCookie(w)
					ua.notifier.Publish(auth.SessionEvent{Kind: auth.SessionEnded, Subject: session.Subject})
					ua.reject(w, r)
					return
				}
				if err := ua.sessionManager.SetSessionCookie(w, refreshed); err != nil {
					ua.logger.Error("Ошибка обновления session cookie",
						slog.String("error", err.Error()),
					)
					ua.sessionManager.ClearSessionCookie(w)
					ua.reject(w, r)
					return
				}
				session = refreshed
				ua.notifier.Publish(auth.SessionEvent{Kind: auth.SessionRefreshed, Subject: session.Subject})
				ua.logger.Debug("Сессия обновлена через refresh token",
					slog.String("username", session.Username),
				)
			}

			ctx := context.WithValue(WithSession(r.Context(), session), contextKeyUIAuth, ua)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// refreshSession обновляет токены, сохраняя данные пользователя.
func (ua *UIAuth) refreshSession(ctx context.Context, session *auth.SessionData) (*auth.SessionData, error) {
	if session.RefreshToken == "" {
		return nil, errors.New("refresh token отсутствует")
	}
	tokens, err := ua.refresher.RefreshTokens(ctx, session.RefreshToken)
	if err != nil {
		return nil, err
	}

	refreshed := *session
	refreshed.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}
	refreshed.ExpiresAt = tokens.ExpiresAt(ua.now())
	return &refreshed, nil
}

// reject отвечает на запрос без действующей сессии.
func (ua *UIAuth) reject(w http.ResponseWriter, r *http.Request) {
	if IsHTMX(r) || IsEventStream(r) {
		w.Header().Set("HX-Redirect", LoginPath)
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// EndSession завершает сессию запроса, которую отверг backend:
// удаляет cookie, публикует SessionEnded и отвечает как на запрос без сессии.
// false: запрос не проходил через UIAuth, ответ не записан.
func EndSession(w http.ResponseWriter, r *http.Request) bool {
	ua, ok := r.Context().Value(contextKeyUIAuth).(*UIAuth)
	if !ok {
		return false
	}
	subject := Scope(r.Context())
	ua.logger.Info("Backend отверг токен, сессия завершена",
		slog.String("subject", subject),
		slog.String("path", r.URL.Path),
	)
	ua.sessionManager.ClearSessionCookie(w)
	ua.notifier.Publish(auth.SessionEvent{Kind: auth.SessionEnded, Subject: subject})
	ua.reject(w, r)
	return true
}

// IsHTMX: запрос отправлен htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// IsEventStream: запрос подписки на SSE.
func IsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// WithSession помещает сессию в контекст.
func WithSession(ctx context.Context, session *auth.SessionData) context.Context {
	return context.WithValue(ctx, ContextKeyUISession, session)
}

// SessionFromContext извлекает SessionData из контекста запроса.
// Возвращает nil, если запрос не прошёл через UIAuth.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, ok := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	if !ok {
		return nil
	}
	return session
}

// CurrentUser: пользователь текущего запроса.
func CurrentUser(ctx context.Context) auth.CurrentUser {
	return auth.CurrentUserFrom(SessionFromContext(ctx))
}

// Scope: идентификатор пользователя для кэша и состояния форм.
func Scope(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil {
		return s.Subject
	}
	return ""
}

// AccessToken: источник Bearer-токена для клиента backend API.
func AccessToken(ctx context.Context) (string, error) {
	s := SessionFromContext(ctx)
	if s == nil || s.AccessToken == "" {
		return "", ErrNoSession
	}
	return s.AccessToken, nil
}
