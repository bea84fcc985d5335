// Пакет auth реализует аутентификацию веб-интерфейса Resumitory: OIDC-клиент
// Keycloak (PKCE), проверка JWT, сессии в зашифрованном cookie
// (AES-256-GCM), уведомления о смене сессии.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SessionCookieName: cookie зашифрованной сессии.
const SessionCookieName = "resumitory_session"

// SessionCookieMaxAge: время жизни cookie сессии (24 часа).
const SessionCookieMaxAge = 24 * 60 * 60

// refreshSkew: access token считается истёкшим заранее,
// чтобы запрос к backend не ушёл с токеном на границе срока.
const refreshSkew = 30 * time.Second

// SessionData: данные сессии в cookie.
type SessionData struct {
	AccessToken  string `json:"access_token"`  //nolint:gosec // G117: токен OAuth2
	RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: токен OAuth2
	// ExpiresAt: истечение access token (Unix timestamp).
	ExpiresAt int64 `json:"expires_at"`
	// Subject: sub из JWT; ключ изоляции кэша и форм.
	Subject     string `json:"sub"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

// IsExpired: до истечения access token меньше refreshSkew.
func (s *SessionData) IsExpired() bool {
	return time.Now().Add(refreshSkew).Unix() >= s.ExpiresAt
}

// Display: отображаемое имя: name, preferred_username или email.
func (s *SessionData) Display() string {
	switch {
	case s.DisplayName != "":
		return s.DisplayName
	case s.Username != "":
		return s.Username
	default:
		return s.Email
	}
}

// SessionManager шифрует SessionData в cookie.
type SessionManager struct {
	gcm    cipher.AEAD
	secure bool
}

// NewSessionManager создаёт менеджер сессий.
// key: base64 32-байтового ключа или произвольная строка (хешируется SHA-256).
// Пустой key: случайный ключ, сессии не переживают рестарт.
func NewSessionManager(key string, secure bool) (*SessionManager, error) {
	var keyBytes []byte
	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err == nil && len(decoded) == 32 {
			keyBytes = decoded
		} else {
			sum := sha256.Sum256([]byte(key))
			keyBytes = sum[:]
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}
	return &SessionManager{gcm: gcm, secure: secure}, nil
}

// Encrypt шифрует сессию в base64url (nonce + ciphertext).
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}
	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	sealed := sm.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt восстанавливает сессию из строки Encrypt.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}
	nonceSize := sm.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}
	plaintext, err := sm.gcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}
	var data SessionData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}
	return &data, nil
}

// SetSessionCookie записывает сессию в ответ.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := sm.Encrypt(data)
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(encrypted, SessionCookieMaxAge))
	return nil
}

// GetSessionFromRequest читает сессию из cookie.
// Отсутствие cookie: nil, nil.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*SessionData, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	return sm.Decrypt(c.Value)
}

// ClearSessionCookie удаляет cookie сессии.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie("", -1))
}

// Secure: cookie выставляются с флагом Secure.
func (sm *SessionManager) Secure() bool { return sm.secure }

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
