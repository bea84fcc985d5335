package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/dashboard", "/dashboard"},
		{"/health/ready", "/health/ready"},
		{"/static/js/app.js", "/static/*"},
		{"/partials/applications", "/partials/applications"},
		{"/partials/applications/quick-add", "/partials/applications/quick-add"},
		{"/partials/applications/new", "/partials/applications/new"},
		{"/partials/applications/42", "/partials/applications/{id}"},
		{"/partials/applications/42/status", "/partials/applications/{id}/status"},
		{"/partials/applications/42/edit", "/partials/applications/{id}/edit"},
		{"/partials/applications/42/delete", "/partials/applications/{id}/delete"},
		{"/partials/forms/0b8e2d9c-5e0a-4a51-9f3b-2f2d6f1f7e11/quick-add", "/partials/forms/{token}/quick-add"},
		{"/partials/forms/0b8e2d9c-5e0a-4a51-9f3b-2f2d6f1f7e11", "/partials/forms/{token}"},
		{"/partials/resumes/7/clone", "/partials/resumes/{id}/clone"},
		{"/partials/resumes/7/edit", "/partials/resumes/{id}/edit"},
		{"/partials/applications/42/status/error", "/partials/applications/{id}/status/error"},
		{"/partials/unknown/7", "/partials/unknown/7"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, ожидается %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
	}{
		{"успех", "/dashboard", http.StatusOK, "level=INFO"},
		{"статика", "/static/css/app.css", http.StatusOK, "level=DEBUG"},
		{"клиентская ошибка", "/events", http.StatusUnauthorized, "level=WARN"},
		{"серверная ошибка", "/dashboard", http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("HX-Request", "true")
			h.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("лог %q не содержит %s", out, tt.wantLevel)
			}
			if !strings.Contains(out, "bytes=4") || !strings.Contains(out, "htmx=true") {
				t.Errorf("лог %q не содержит размер ответа или признак htmx", out)
			}
		})
	}
}

func TestResponseWriters_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("Flush через обёртки middleware: %v", err)
		}
	})
	handler = MetricsMiddleware()(handler)
	handler = RequestLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(handler)

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if !rec.Flushed {
		t.Error("ResponseController не достал Flusher исходного ResponseWriter")
	}
}
