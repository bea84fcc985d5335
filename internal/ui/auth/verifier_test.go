package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID  = "test-key-rw"
	testIssuer = "http://keycloak:8080/realms/resumitory"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из публичного RSA-ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func newTestVerifier(t *testing.T, key *rsa.PrivateKey) *TokenVerifier {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewTokenVerifierWithKeyfunc(kf, testIssuer, 5*time.Second, testLogger())
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func userClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "user-1",
		"iss":                testIssuer,
		"exp":                jwt.NewNumericDate(exp),
		"iat":                jwt.NewNumericDate(time.Now()),
		"preferred_username": "dhanush",
		"email":              "dhanush@example.com",
		"name":               "Dhanush R",
	}
}

func TestTokenVerifier_Valid(t *testing.T) {
	key := generateTestKey(t)
	v := newTestVerifier(t, key)
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)

	claims, err := v.Verify(context.Background(), signToken(t, key, userClaims(exp)))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.PreferredUsername != "dhanush" || claims.Name != "Dhanush R" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, ожидалось %v", claims.ExpiresAt, exp)
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	v := newTestVerifier(t, key)

	tests := []struct {
		name  string
		token func() string
	}{
		{
			name:  "истёк",
			token: func() string { return signToken(t, key, userClaims(time.Now().Add(-time.Hour))) },
		},
		{
			name: "чужой issuer",
			token: func() string {
				c := userClaims(time.Now().Add(time.Hour))
				c["iss"] = "http://evil/realms/resumitory"
				return signToken(t, key, c)
			},
		},
		{
			name: "без exp",
			token: func() string {
				c := userClaims(time.Now().Add(time.Hour))
				delete(c, "exp")
				return signToken(t, key, c)
			},
		},
		{
			name: "без sub",
			token: func() string {
				c := userClaims(time.Now().Add(time.Hour))
				delete(c, "sub")
				return signToken(t, key, c)
			},
		},
		{
			name:  "чужая подпись",
			token: func() string { return signToken(t, otherKey, userClaims(time.Now().Add(time.Hour))) },
		},
		{
			name:  "мусор",
			token: func() string { return "not.a.jwt" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token())
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ожидалась ErrInvalidToken, получено %v", err)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	now := time.Unix(10_000, 0)
	s := NewSession(
		&TokenResponse{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 300},
		&Claims{Subject: "user-1", PreferredUsername: "dhanush", Email: "d@example.com"},
		now,
	)
	if s.ExpiresAt != 10_300 || s.Subject != "user-1" || s.Display() != "dhanush" {
		t.Errorf("сессия = %+v", s)
	}
}
