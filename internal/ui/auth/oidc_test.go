package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestGeneratePKCE(t *testing.T) {
	params, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("Ошибка генерации PKCE: %v", err)
	}
	if len(params.CodeVerifier) != 43 {
		t.Errorf("длина CodeVerifier = %d, ожидалось 43", len(params.CodeVerifier))
	}
	hash := sha256.Sum256([]byte(params.CodeVerifier))
	if params.CodeChallenge != base64.RawURLEncoding.EncodeToString(hash[:]) {
		t.Error("CodeChallenge не совпадает с SHA-256(code_verifier)")
	}

	other, _ := GeneratePKCE()
	if other.CodeVerifier == params.CodeVerifier {
		t.Error("два вызова GeneratePKCE вернули одинаковый code_verifier")
	}
}

func TestGenerateState(t *testing.T) {
	s1, err := GenerateState()
	if err != nil || s1 == "" {
		t.Fatalf("state = %q, err = %v", s1, err)
	}
	if s2, _ := GenerateState(); s1 == s2 {
		t.Error("два вызова GenerateState вернули одинаковые значения")
	}
}

func testOIDCClient(keycloakURL string) *OIDCClient {
	return NewOIDCClient(OIDCConfig{
		KeycloakURL:        keycloakURL,
		BrowserKeycloakURL: "https://auth.resumitory.example",
		Realm:              "resumitory",
		ClientID:           "resumitory-web",
		Timeout:            5 * time.Second,
	})
}

func TestOIDCClient_AuthorizeAndRegistrationURL(t *testing.T) {
	client := testOIDCClient("http://keycloak:8080")

	tests := []struct {
		name     string
		build    func(redirect, state, challenge string) string
		wantBase string
	}{
		{name: "вход", build: client.AuthorizeURL, wantBase: "https://auth.resumitory.example/realms/resumitory/protocol/openid-connect/auth?"},
		{name: "регистрация", build: client.RegistrationURL, wantBase: "https://auth.resumitory.example/realms/resumitory/protocol/openid-connect/registrations?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.build("http://localhost:8080/auth/callback", "state-1", "challenge-1")
			if !strings.HasPrefix(raw, tt.wantBase) {
				t.Fatalf("URL = %s, ожидался префикс %s", raw, tt.wantBase)
			}
			parsed, err := url.Parse(raw)
			if err != nil {
				t.Fatal(err)
			}
			want := map[string]string{
				"client_id":             "resumitory-web",
				"response_type":         "code",
				"redirect_uri":          "http://localhost:8080/auth/callback",
				"state":                 "state-1",
				"code_challenge":        "challenge-1",
				"code_challenge_method": "S256",
				"scope":                 "openid profile email",
			}
			for key, value := range want {
				if got := parsed.Query().Get(key); got != value {
					t.Errorf("%s = %q, ожидалось %q", key, got, value)
				}
			}
		})
	}

	if client.Issuer() != "http://keycloak:8080/realms/resumitory" {
		t.Errorf("Issuer = %s", client.Issuer())
	}
}

func TestOIDCClient_LogoutURL(t *testing.T) {
	client := testOIDCClient("http://keycloak:8080")

	parsed, err := url.Parse(client.LogoutURL("", "http://localhost:8080/login"))
	if err != nil {
		t.Fatal(err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "resumitory-web" || q.Get("post_logout_redirect_uri") != "http://localhost:8080/login" {
		t.Errorf("параметры logout = %v", q)
	}
	if q.Has("id_token_hint") {
		t.Error("пустой id_token_hint не должен передаваться")
	}
}

func TestOIDCClient_ExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/resumitory/protocol/openid-connect/token" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code_verifier") != "verifier" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Code not valid"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":300,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	client := testOIDCClient(srv.URL)

	tokens, err := client.ExchangeCode(context.Background(), "code", "http://localhost/auth/callback", "verifier")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" {
		t.Errorf("токены = %+v", tokens)
	}
	now := time.Unix(1000, 0)
	if tokens.ExpiresAt(now) != 1300 {
		t.Errorf("ExpiresAt = %d", tokens.ExpiresAt(now))
	}

	_, err = client.ExchangeCode(context.Background(), "code", "http://localhost/auth/callback", "wrong")
	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) || tokenErr.Code != "invalid_grant" {
		t.Errorf("ожидалась TokenError invalid_grant, получено %v", err)
	}
}

func TestOIDCClient_RefreshTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "rt" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_in":60}`))
	}))
	defer srv.Close()

	tokens, err := testOIDCClient(srv.URL).RefreshTokens(context.Background(), "rt")
	if err != nil || tokens.AccessToken != "at2" {
		t.Fatalf("RefreshTokens = %+v, %v", tokens, err)
	}

	if _, err := testOIDCClient(srv.URL).RefreshTokens(context.Background(), "bad"); err == nil {
		t.Error("ожидалась ошибка для статуса 502")
	}
}
