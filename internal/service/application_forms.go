// application_forms.go: модальные формы откликов: быстрое добавление
// и полная форма (создание/редактирование). Экземпляры форм хранятся
// в реестре с TTL и адресуются случайным токеном.
//
// Жизненный цикл: idle → submitting → closed при успехе
// или обратно в idle с сообщением об ошибке.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
)

// FormKind: вид формы.
type FormKind string

const (
	FormQuickAdd FormKind = "quick_add"
	FormFull     FormKind = "full"
)

// FormMode: режим полной формы.
type FormMode string

const (
	FormModeCreate FormMode = "create"
	FormModeEdit   FormMode = "edit"
)

// FormState: состояние экземпляра формы.
type FormState string

const (
	FormIdle       FormState = "idle"
	FormSubmitting FormState = "submitting"
	FormClosed     FormState = "closed"
)

// formTransitions: матрица допустимых переходов.
var formTransitions = map[FormState]map[FormState]bool{
	FormIdle:       {FormSubmitting: true},
	FormSubmitting: {FormIdle: true, FormClosed: true},
	FormClosed:     {}, // Конечное состояние
}

// FormValues: значения полей формы в том виде, как их ввёл пользователь.
type FormValues struct {
	Company      string
	Role         string
	Status       string
	DateApplied  string
	FollowUpDate string
	ResumeID     string
	Notes        string
}

// ValuesFromApplication заполняет форму редактирования из отклика.
// Даты приводятся к YYYY-MM-DD, неразборчивые оставляются как есть.
func ValuesFromApplication(a model.Application) FormValues {
	return FormValues{
		Company:      a.Company,
		Role:         a.Role,
		Status:       string(a.Status),
		DateApplied:  normalizeDate(a.DateApplied),
		FollowUpDate: normalizeDate(model.Deref(a.FollowUpDate)),
		ResumeID:     model.Deref(a.ResumeID),
		Notes:        model.Deref(a.Notes),
	}
}

func normalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return raw
	}
	return d.String()
}

// Form: экземпляр формы. Lookup и Submit* возвращают копию.
type Form struct {
	Token    string
	Scope    string
	Kind     FormKind
	Mode     FormMode
	TargetID string
	Values   FormValues
	State    FormState
	// Err: ошибка последней отправки (backend или сеть).
	Err *MutationError
	// Invalid: ошибка валидации последней отправки.
	Invalid *ValidationError
}

// FormController управляет экземплярами форм откликов.
type FormController struct {
	coordinator *ApplicationCoordinator
	now         func() time.Time
	logger      *slog.Logger

	mu    sync.Mutex
	forms *expirable.LRU[string, *Form]
}

// NewFormController создаёт контроллер с реестром на size форм и временем жизни ttl.
func NewFormController(coordinator *ApplicationCoordinator, size int, ttl time.Duration, logger *slog.Logger) *FormController {
	return &FormController{
		coordinator: coordinator,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "application_forms")),
		forms:       expirable.NewLRU[string, *Form](size, nil, ttl),
	}
}

// OpenQuickAdd открывает форму быстрого добавления.
func (c *FormController) OpenQuickAdd(scope string) Form {
	return c.open(&Form{Scope: scope, Kind: FormQuickAdd, Mode: FormModeCreate})
}

// OpenCreate открывает полную форму создания: статус applied, дата: сегодня.
func (c *FormController) OpenCreate(scope string) Form {
	return c.open(&Form{
		Scope: scope,
		Kind:  FormFull,
		Mode:  FormModeCreate,
		Values: FormValues{
			Status:      string(model.StatusApplied),
			DateApplied: model.DateOf(c.now()).String(),
		},
	})
}

// OpenEdit открывает полную форму редактирования. Значения копируются
// из снимка в момент открытия и дальше от него не зависят.
func (c *FormController) OpenEdit(scope string, snapshot model.Application) Form {
	return c.open(&Form{
		Scope:    scope,
		Kind:     FormFull,
		Mode:     FormModeEdit,
		TargetID: snapshot.ID,
		Values:   ValuesFromApplication(snapshot),
	})
}

func (c *FormController) open(f *Form) Form {
	f.Token = uuid.NewString()
	f.State = FormIdle

	c.mu.Lock()
	c.forms.Add(f.Token, f)
	out := *f
	c.mu.Unlock()

	c.logger.Debug("Форма открыта",
		slog.String("kind", string(f.Kind)),
		slog.String("mode", string(f.Mode)),
		slog.String("target", f.TargetID),
	)
	return out
}

// Lookup возвращает форму пользователя по токену.
// Чужой или истёкший токен: ErrFormNotFound.
func (c *FormController) Lookup(scope, token string) (Form, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := c.get(scope, token)
	if err != nil {
		return Form{}, err
	}
	return *f, nil
}

// Cancel закрывает форму без отправки.
func (c *FormController) Cancel(scope, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, err := c.get(scope, token); err == nil && f.State != FormSubmitting {
		c.forms.Remove(token)
	}
}

// DiscardScope удаляет все формы пользователя (завершение сессии).
func (c *FormController) DiscardScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for _, token := range c.forms.Keys() {
		if f, ok := c.forms.Peek(token); ok && f.Scope == scope {
			c.forms.Remove(token)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Формы пользователя удалены", slog.Int("count", removed))
	}
}

// SubmitQuickAdd отправляет форму быстрого добавления.
func (c *FormController) SubmitQuickAdd(ctx context.Context, scope, token string, values FormValues) (*model.Application, Form, error) {
	return c.submit(ctx, scope, token, FormQuickAdd, values, func(ctx context.Context, f Form) (*model.Application, error) {
		return c.coordinator.QuickCreate(ctx, scope, model.QuickDraft{
			Company:  strings.TrimSpace(f.Values.Company),
			Role:     strings.TrimSpace(f.Values.Role),
			ResumeID: model.StringPtr(strings.TrimSpace(f.Values.ResumeID)),
		})
	})
}

// SubmitFull отправляет полную форму: в режиме создания: POST,
// в режиме редактирования: PATCH со всеми полями, очищенные
// необязательные поля уходят как null.
func (c *FormController) SubmitFull(ctx context.Context, scope, token string, values FormValues) (*model.Application, Form, error) {
	return c.submit(ctx, scope, token, FormFull, values, func(ctx context.Context, f Form) (*model.Application, error) {
		v := f.Values
		dateApplied := normalizeDate(strings.TrimSpace(v.DateApplied))
		followUp := normalizeDate(strings.TrimSpace(v.FollowUpDate))
		resumeID := strings.TrimSpace(v.ResumeID)
		notes := strings.TrimSpace(v.Notes)

		if f.Mode == FormModeEdit {
			return c.coordinator.Update(ctx, scope, f.TargetID, model.ApplicationPatch{
				Company:      model.Value(strings.TrimSpace(v.Company)),
				Role:         model.Value(strings.TrimSpace(v.Role)),
				Status:       model.Value(model.Status(v.Status)),
				DateApplied:  model.Value(dateApplied),
				FollowUpDate: model.OptionalValue(followUp),
				ResumeID:     model.OptionalValue(resumeID),
				Notes:        model.OptionalValue(notes),
			})
		}
		return c.coordinator.Create(ctx, scope, model.ApplicationDraft{
			Company:      strings.TrimSpace(v.Company),
			Role:         strings.TrimSpace(v.Role),
			Status:       model.Status(v.Status),
			DateApplied:  dateApplied,
			FollowUpDate: model.StringPtr(followUp),
			ResumeID:     model.StringPtr(resumeID),
			Notes:        model.StringPtr(notes),
		})
	})
}

// submit проводит форму через состояния и вызывает send вне блокировки.
func (c *FormController) submit(
	ctx context.Context,
	scope, token string,
	kind FormKind,
	values FormValues,
	send func(ctx context.Context, f Form) (*model.Application, error),
) (*model.Application, Form, error) {
	c.mu.Lock()
	f, err := c.get(scope, token)
	if err != nil {
		c.mu.Unlock()
		return nil, Form{}, err
	}
	if f.Kind != kind {
		c.mu.Unlock()
		return nil, *f, ErrFormNotFound
	}
	switch f.State {
	case FormSubmitting:
		out := *f
		c.mu.Unlock()
		return nil, out, ErrSubmitInFlight
	case FormClosed:
		out := *f
		c.mu.Unlock()
		return nil, out, ErrFormClosed
	}

	f.Values = values
	f.Err = nil
	f.Invalid = validateForm(kind, values)
	if f.Invalid != nil {
		out := *f
		c.mu.Unlock()
		return nil, out, f.Invalid
	}
	if err := c.transition(f, FormSubmitting); err != nil {
		c.mu.Unlock()
		return nil, *f, err
	}
	snapshot := *f
	c.mu.Unlock()

	app, sendErr := send(ctx, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if sendErr != nil {
		_ = c.transition(f, FormIdle)
		var mErr *MutationError
		if errors.As(sendErr, &mErr) {
			f.Err = mErr
		}
		var vErr *ValidationError
		if errors.As(sendErr, &vErr) {
			f.Invalid = vErr
		}
		return nil, *f, sendErr
	}

	_ = c.transition(f, FormClosed)
	c.forms.Remove(token)
	return app, *f, nil
}

// transition меняет состояние формы по матрице переходов.
// Вызывается под c.mu.
func (c *FormController) transition(f *Form, target FormState) error {
	if !formTransitions[f.State][target] {
		return fmt.Errorf("переход формы %s → %s недопустим", f.State, target)
	}
	f.State = target
	return nil
}

// get находит форму пользователя. Вызывается под c.mu.
func (c *FormController) get(scope, token string) (*Form, error) {
	f, ok := c.forms.Get(token)
	if !ok || f.Scope != scope {
		return nil, ErrFormNotFound
	}
	return f, nil
}

// validateForm проверяет поля до отправки запроса.
func validateForm(kind FormKind, v FormValues) *ValidationError {
	if strings.TrimSpace(v.Company) == "" {
		return newValidationError("company", "validation.company_required")
	}
	if strings.TrimSpace(v.Role) == "" {
		return newValidationError("role", "validation.role_required")
	}
	if kind == FormQuickAdd {
		return nil
	}
	if !model.Status(v.Status).Valid() {
		return newValidationError("status", "validation.status_invalid")
	}
	if strings.TrimSpace(v.DateApplied) == "" {
		return newValidationError("date_applied", "validation.date_applied_required")
	}
	if _, err := model.ParseDate(strings.TrimSpace(v.DateApplied)); err != nil {
		return newValidationError("date_applied", "validation.date_invalid")
	}
	if fu := strings.TrimSpace(v.FollowUpDate); fu != "" {
		if _, err := model.ParseDate(fu); err != nil {
			return newValidationError("follow_up_date", "validation.date_invalid")
		}
	}
	return nil
}
