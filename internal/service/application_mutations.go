// application_mutations.go: координатор мутаций откликов.
// Каждая успешная мутация инвалидирует коллекцию applications пользователя
// (список со всеми фильтрами и сводку), неуспешная не меняет ничего.
// Оптимистичных обновлений нет: данные обновляются только перезапросом.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
)

// ApplicationsAPI: операции backend API, изменяющие отклики.
type ApplicationsAPI interface {
	CreateApplication(ctx context.Context, draft model.ApplicationDraft) (*model.Application, error)
	QuickCreateApplication(ctx context.Context, draft model.QuickDraft) (*model.Application, error)
	UpdateApplication(ctx context.Context, id string, patch model.ApplicationPatch) (*model.Application, error)
	DeleteApplication(ctx context.Context, id string) error
}

// ApplicationCoordinator: координатор мутаций откликов.
type ApplicationCoordinator struct {
	api     ApplicationsAPI
	tracker *mutationTracker
	logger  *slog.Logger
}

// NewApplicationCoordinator создаёт координатор.
func NewApplicationCoordinator(api ApplicationsAPI, invalidator Invalidator, logger *slog.Logger) *ApplicationCoordinator {
	l := logger.With(slog.String("component", "application_mutations"))
	return &ApplicationCoordinator{
		api:     api,
		tracker: newMutationTracker(CollectionApplications, invalidator, l),
		logger:  l,
	}
}

// Create создаёт отклик из полной формы.
func (c *ApplicationCoordinator) Create(ctx context.Context, scope string, draft model.ApplicationDraft) (*model.Application, error) {
	if err := requireCompanyRole(draft.Company, draft.Role); err != nil {
		return nil, err
	}
	var created *model.Application
	err := c.tracker.run(ctx, scope, MutationCreate, "", func(ctx context.Context) error {
		var err error
		created, err = c.api.CreateApplication(ctx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Отклик создан", slog.String("id", created.ID))
	return created, nil
}

// QuickCreate создаёт отклик по компании и позиции.
func (c *ApplicationCoordinator) QuickCreate(ctx context.Context, scope string, draft model.QuickDraft) (*model.Application, error) {
	if err := requireCompanyRole(draft.Company, draft.Role); err != nil {
		return nil, err
	}
	var created *model.Application
	err := c.tracker.run(ctx, scope, MutationQuickCreate, "", func(ctx context.Context) error {
		var err error
		created, err = c.api.QuickCreateApplication(ctx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Отклик добавлен быстрой формой", slog.String("id", created.ID))
	return created, nil
}

// Update применяет частичное обновление.
func (c *ApplicationCoordinator) Update(ctx context.Context, scope, id string, patch model.ApplicationPatch) (*model.Application, error) {
	return c.update(ctx, scope, MutationUpdate, id, patch)
}

// SetStatus меняет только статус отклика.
func (c *ApplicationCoordinator) SetStatus(ctx context.Context, scope, id string, status model.Status) (*model.Application, error) {
	if !status.Valid() {
		return nil, newValidationError("status", "validation.status_invalid")
	}
	return c.update(ctx, scope, MutationSetStatus, id, model.ApplicationPatch{Status: model.Value(status)})
}

func (c *ApplicationCoordinator) update(ctx context.Context, scope string, kind MutationKind, id string, patch model.ApplicationPatch) (*model.Application, error) {
	var updated *model.Application
	err := c.tracker.run(ctx, scope, kind, id, func(ctx context.Context) error {
		var err error
		updated, err = c.api.UpdateApplication(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove удаляет отклик после подтверждения. Отказ: ErrNotConfirmed,
// запрос не выполняется и состояние ошибки не записывается.
func (c *ApplicationCoordinator) Remove(ctx context.Context, scope, id, prompt string, confirmer Confirmer) error {
	if err := confirm(ctx, confirmer, prompt); err != nil {
		return err
	}
	err := c.tracker.run(ctx, scope, MutationRemove, id, func(ctx context.Context) error {
		return c.api.DeleteApplication(ctx, id)
	})
	if err != nil {
		return err
	}
	c.logger.Info("Отклик удалён", slog.String("id", id))
	return nil
}

// State возвращает состояние мутации kind над target (пустой target: создание).
func (c *ApplicationCoordinator) State(scope string, kind MutationKind, target string) MutationState {
	return c.tracker.state(scope, kind, target)
}

// ClearError сбрасывает сохранённую ошибку мутации.
func (c *ApplicationCoordinator) ClearError(scope string, kind MutationKind, target string) {
	c.tracker.clear(scope, kind, target)
}

// ForgetScope удаляет состояния мутаций пользователя.
func (c *ApplicationCoordinator) ForgetScope(scope string) {
	c.tracker.forgetScope(scope)
}

// requireCompanyRole: компания и позиция обязательны.
func requireCompanyRole(company, role string) error {
	if strings.TrimSpace(company) == "" {
		return newValidationError("company", "validation.company_required")
	}
	if strings.TrimSpace(role) == "" {
		return newValidationError("role", "validation.role_required")
	}
	return nil
}
