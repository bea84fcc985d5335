// Пакет model описывает доменные модели Resumitory: отклики на вакансии, резюме,
// сводная статистика. Модели соответствуют JSON-контракту backend API.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Status: этап воронки отклика.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusRejected  Status = "rejected"
	StatusArchived  Status = "archived"
)

// Statuses: все статусы в порядке воронки (для select и сводки).
var Statuses = []Status{
	StatusApplied,
	StatusInterview,
	StatusOffer,
	StatusRejected,
	StatusArchived,
}

// ErrInvalidStatus: значение не входит в перечисление статусов.
var ErrInvalidStatus = errors.New("недопустимый статус отклика")

// Valid проверяет, что статус входит в перечисление.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Closed: отклик больше не требует follow-up.
func (s Status) Closed() bool {
	return s == StatusRejected || s == StatusArchived
}

// ParseStatus разбирает статус без учёта регистра и пробелов по краям.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}
