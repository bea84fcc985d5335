// errors.go: ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfirmed: пользователь отказался подтверждать действие.
	// Запрос не выполнялся, состояние ошибки не записывается.
	ErrNotConfirmed = errors.New("действие не подтверждено")
	// ErrSubmitInFlight: форма уже отправляется.
	ErrSubmitInFlight = errors.New("форма уже отправляется")
	// ErrFormClosed: форма закрыта после успешной отправки.
	ErrFormClosed = errors.New("форма закрыта")
	// ErrFormNotFound: форма не найдена или истекла.
	ErrFormNotFound = errors.New("форма не найдена или истекла")
	// ErrSuperseded: загрузка вытеснена более новым запросом того же представления.
	ErrSuperseded = errors.New("запрос вытеснен более новым")
	// ErrResumeNotFound: резюме нет в библиотеке пользователя.
	ErrResumeNotFound = errors.New("резюме не найдено")
	// ErrValidation: ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)

// ValidationError: некорректное поле формы. Key: ключ i18n-каталога.
type ValidationError struct {
	Field string
	Key   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Key)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// newValidationError создаёт ValidationError.
func newValidationError(field, key string) *ValidationError {
	return &ValidationError{Field: field, Key: key}
}

// MutationError: неудачная мутация. Message: текст от backend
// (может быть пустым), FallbackKey: ключ i18n для общего сообщения.
type MutationError struct {
	Kind        MutationKind
	TargetID    string
	Message     string
	FallbackKey string
	Err         error
}

func (e *MutationError) Error() string {
	if e.TargetID != "" {
		return fmt.Sprintf("мутация %s (%s): %v", e.Kind, e.TargetID, e.Err)
	}
	return fmt.Sprintf("мутация %s: %v", e.Kind, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// LoadError: неудачная загрузка данных для представления.
type LoadError struct {
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("загрузка данных: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
