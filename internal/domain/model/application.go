package model

import (
	"encoding/json"
	"time"
)

// Application: отклик на вакансию в представлении backend API.
// Даты приходят строками и разбираются только через ParseDate:
// некорректная дата не ломает декодирование всего списка.
type Application struct {
	ID           string  `json:"id"`
	Company      string  `json:"company"`
	Role         string  `json:"role"`
	Status       Status  `json:"status"`
	DateApplied  string  `json:"date_applied"`
	FollowUpDate *string `json:"follow_up_date,omitempty"`
	ResumeID     *string `json:"resume_id,omitempty"`
	// ResumeName: только чтение, заполняется списочным endpoint.
	ResumeName *string `json:"resume_name,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// UnmarshalJSON принимает last_updated как синоним updated_at.
func (a *Application) UnmarshalJSON(data []byte) error {
	type plain Application
	var aux struct {
		plain
		LastUpdated string `json:"last_updated"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Application(aux.plain)
	if a.UpdatedAt == "" {
		a.UpdatedAt = aux.LastUpdated
	}
	return nil
}

// AppliedOn разбирает date_applied.
func (a *Application) AppliedOn() (Date, error) {
	return ParseDate(a.DateApplied)
}

// FollowUpOn разбирает follow_up_date. ok=false, если дата не задана.
func (a *Application) FollowUpOn() (d Date, ok bool, err error) {
	if a.FollowUpDate == nil || *a.FollowUpDate == "" {
		return Date{}, false, nil
	}
	d, err = ParseDate(*a.FollowUpDate)
	return d, err == nil, err
}

// FollowUpOverdue: открытый отклик с датой follow-up раньше today.
// Неразборчивая дата просроченной не считается.
func (a *Application) FollowUpOverdue(today Date) bool {
	if a.Status.Closed() {
		return false
	}
	d, ok, err := a.FollowUpOn()
	if err != nil || !ok {
		return false
	}
	return d.Compare(today) < 0
}

// ApplicationList: снимок списка откликов из кэша.
// Значение неизменяемо: идентичность указателя означает идентичность данных.
type ApplicationList struct {
	Items     []Application
	FetchedAt time.Time
}

// Len: количество откликов (nil-безопасно).
func (l *ApplicationList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// ApplicationDraft: тело POST /applications/.
// Необязательные поля без omitempty: пустое значение уходит явным null.
type ApplicationDraft struct {
	Company      string  `json:"company"`
	Role         string  `json:"role"`
	Status       Status  `json:"status"`
	DateApplied  string  `json:"date_applied"`
	FollowUpDate *string `json:"follow_up_date"`
	ResumeID     *string `json:"resume_id"`
	Notes        *string `json:"notes"`
}

// QuickDraft: тело POST /applications/quick.
type QuickDraft struct {
	Company  string  `json:"company"`
	Role     string  `json:"role"`
	ResumeID *string `json:"resume_id"`
}

// ApplicationPatch: тело PATCH /applications/{id}.
// Сериализуются только заданные поля, очищенные уходят как null.
type ApplicationPatch struct {
	Company      Nullable[string] `json:"company,omitzero"`
	Role         Nullable[string] `json:"role,omitzero"`
	Status       Nullable[Status] `json:"status,omitzero"`
	DateApplied  Nullable[string] `json:"date_applied,omitzero"`
	FollowUpDate Nullable[string] `json:"follow_up_date,omitzero"`
	ResumeID     Nullable[string] `json:"resume_id,omitzero"`
	Notes        Nullable[string] `json:"notes,omitzero"`
}

// StringPtr возвращает nil для пустой строки.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref возвращает значение или пустую строку.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
