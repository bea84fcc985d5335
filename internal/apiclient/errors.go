package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error: неудачный вызов API: транспорт (StatusCode == 0),
// ответ вне 2xx или неразборчивое тело.
type Error struct {
	// Op: логическая операция (list_applications, create_application...).
	Op string
	// StatusCode: HTTP-статус ответа, 0 если ответа не было.
	StatusCode int
	// Message: текст detail из ответа backend (может быть пустым).
	Message string
	// Err: причина на стороне клиента.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": статус %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound: ресурс отсутствует на backend.
func (e *Error) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Unauthorized: backend отверг токен.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Message возвращает текст ошибки для показа пользователю:
// detail от backend либо пустую строку, если backend его не прислал.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsUnauthorized: ошибка означает недействительную сессию.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// IsNotFound: backend не нашёл ресурс.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// IsCanceled: запрос прерван отменой контекста.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// detailMessage извлекает человекочитаемый текст из тела ошибки.
// Форматы: {"detail": "..."}, {"detail": [{"msg": "..."}]},
// {"error": {"message": "..."}}.
func detailMessage(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	if len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			return text
		}
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg == "" {
					continue
				}
				if field := lastLoc(it.Loc); field != "" {
					msgs = append(msgs, field+": "+it.Msg)
				} else {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	if envelope.Error != nil {
		return envelope.Error.Message
	}
	return ""
}

// lastLoc: имя поля из loc валидационной ошибки ("body", "company" → "company").
func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok && s != "body" {
		return s
	}
	return ""
}
