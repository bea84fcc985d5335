// Пакет handlers содержит HTTP-обработчики веб-интерфейса Resumitory:
// страницы, HTMX-фрагменты, OIDC-вход и поток событий SSE.
package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
	uimiddleware "github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
)

// Имена событий HX-Trigger, по которым страницы перезагружают фрагменты.
const (
	triggerApplicationsChanged = "applications-changed"
	triggerResumesChanged      = "resumes-changed"
)

// render рендерит компонент в буфер и отдаёт его со статусом status.
// Ошибка рендеринга не оставляет клиенту частично записанный ответ.
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, c templ.Component, status int) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		logger.Error("Ошибка рендеринга",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// emptyFragment отвечает пустым фрагментом: цель htmx очищается.
func emptyFragment(w http.ResponseWriter, trigger string) {
	if trigger != "" {
		w.Header().Set("HX-Trigger", trigger)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

// backendRejected завершает сессию, если backend отверг токен (401/403).
// true: ответ уже записан.
func backendRejected(w http.ResponseWriter, r *http.Request, err error) bool {
	return err != nil && apiclient.IsUnauthorized(err) && uimiddleware.EndSession(w, r)
}
