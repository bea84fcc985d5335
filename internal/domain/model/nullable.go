package model

import (
	"bytes"
	"encoding/json"
)

// Nullable: поле частичного обновления с тремя состояниями:
// не задано (ключ не сериализуется), null, значение.
// Пропуск ключа обеспечивает тег `omitzero` через IsZero.
type Nullable[T any] struct {
	set   bool
	null  bool
	value T
}

// Value: поле задано значением.
func Value[T any](v T) Nullable[T] {
	return Nullable[T]{set: true, value: v}
}

// Null: поле явно очищается.
func Null[T any]() Nullable[T] {
	return Nullable[T]{set: true, null: true}
}

// OptionalValue: пустая строка превращается в null.
func OptionalValue(s string) Nullable[string] {
	if s == "" {
		return Null[string]()
	}
	return Value(s)
}

// IsZero: поле не задано.
func (n Nullable[T]) IsZero() bool { return !n.set }

// IsNull: поле явно очищено.
func (n Nullable[T]) IsNull() bool { return n.set && n.null }

// Get возвращает значение, если поле задано не null.
func (n Nullable[T]) Get() (T, bool) {
	if !n.set || n.null {
		var zero T
		return zero, false
	}
	return n.value, true
}

// MarshalJSON сериализует null или значение.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.set || n.null {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON: присутствие ключа означает, что поле задано.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.null = true
		var zero T
		n.value = zero
		return nil
	}
	n.null = false
	return json.Unmarshal(data, &n.value)
}
