// Пакет errors: JSON-ответы об ошибках служебных endpoints веб-фронтенда.
// Формат: {"error": {"code": "...", "message": "..."}}.
// HTML-страницы и фрагменты HTMX этот пакет не используют.
package errors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeKeycloakUnavailable = "KEYCLOAK_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки.
// statusCode задаёт HTTP статус, code машиночитаемый код, message описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Unauthorized: 401: нет сессии (HTMX-запросы и поток /events).
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// NotFound: 404.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// BackendUnavailable: 502: REST API трекера недоступен.
func BackendUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeBackendUnavailable, message)
}

// KeycloakUnavailable: 502: Keycloak недоступен.
func KeycloakUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeKeycloakUnavailable, message)
}

// InternalError: 500.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
