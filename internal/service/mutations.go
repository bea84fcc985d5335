// mutations.go: общий механизм мутаций: состояние pending/error на ключ
// (пользователь, вид, цель), инвалидация коллекции только после успеха.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
)

// mutationsTotal: выполненные мутации по виду и результату.
var mutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rw_mutations_total",
		Help: "Количество мутаций через backend API",
	},
	[]string{"kind", "result"},
)

// MutationKind: вид мутации.
type MutationKind string

const (
	MutationCreate       MutationKind = "create"
	MutationQuickCreate  MutationKind = "quick_create"
	MutationUpdate       MutationKind = "update"
	MutationRemove       MutationKind = "remove"
	MutationSetStatus    MutationKind = "set_status"
	MutationUploadResume MutationKind = "upload_resume"
	MutationUpdateResume MutationKind = "update_resume"
	MutationCloneResume  MutationKind = "clone_resume"
	MutationRemoveResume MutationKind = "remove_resume"
)

// fallbackKeys: i18n-ключи общего сообщения об ошибке по виду мутации.
var fallbackKeys = map[MutationKind]string{
	MutationCreate:       "error.add_failed",
	MutationQuickCreate:  "error.add_failed",
	MutationUpdate:       "error.save_failed",
	MutationSetStatus:    "error.status_failed",
	MutationRemove:       "error.delete_failed",
	MutationUploadResume: "error.upload_failed",
	MutationUpdateResume: "error.save_failed",
	MutationCloneResume:  "error.clone_failed",
	MutationRemoveResume: "error.delete_failed",
}

// Invalidator помечает коллекцию пользователя устаревшей.
type Invalidator interface {
	Invalidate(scope, collection string)
}

// Confirmer подтверждает разрушительное действие.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc: адаптер функции к Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm вызывает f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// MutationState: состояние одной мутации.
type MutationState struct {
	Pending bool
	Err     *MutationError
}

// mutationKey: мутации с разными ключами независимы.
type mutationKey struct {
	scope  string
	kind   MutationKind
	target string
}

// mutationTracker выполняет мутации и хранит их состояние.
type mutationTracker struct {
	collection  string
	invalidator Invalidator
	logger      *slog.Logger

	mu     sync.Mutex
	states map[mutationKey]MutationState
}

func newMutationTracker(collection string, invalidator Invalidator, logger *slog.Logger) *mutationTracker {
	return &mutationTracker{
		collection:  collection,
		invalidator: invalidator,
		logger:      logger,
		states:      make(map[mutationKey]MutationState),
	}
}

// run выполняет fn с учётом состояния. При успехе коллекция
// инвалидируется ровно один раз, при ошибке кэш не трогается.
func (t *mutationTracker) run(ctx context.Context, scope string, kind MutationKind, target string, fn func(ctx context.Context) error) error {
	key := mutationKey{scope: scope, kind: kind, target: target}

	t.mu.Lock()
	t.states[key] = MutationState{Pending: true}
	t.mu.Unlock()

	err := fn(ctx)
	if err != nil {
		mErr := &MutationError{
			Kind:        kind,
			TargetID:    target,
			Message:     apiclient.Message(err),
			FallbackKey: fallbackKeys[kind],
			Err:         err,
		}
		t.mu.Lock()
		t.states[key] = MutationState{Err: mErr}
		t.mu.Unlock()

		mutationsTotal.WithLabelValues(string(kind), "error").Inc()
		level := slog.LevelWarn
		if errors.Is(err, context.Canceled) {
			level = slog.LevelDebug
		}
		t.logger.Log(ctx, level, "Мутация не выполнена",
			slog.String("kind", string(kind)),
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		return mErr
	}

	t.mu.Lock()
	delete(t.states, key)
	t.mu.Unlock()

	mutationsTotal.WithLabelValues(string(kind), "ok").Inc()
	t.invalidator.Invalidate(scope, t.collection)
	return nil
}

// state возвращает текущее состояние мутации.
func (t *mutationTracker) state(scope string, kind MutationKind, target string) MutationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[mutationKey{scope: scope, kind: kind, target: target}]
}

// clear сбрасывает ошибку мутации (пользователь закрыл сообщение).
func (t *mutationTracker) clear(scope string, kind MutationKind, target string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := mutationKey{scope: scope, kind: kind, target: target}
	if st, ok := t.states[key]; ok && !st.Pending {
		delete(t.states, key)
	}
}

// forgetScope удаляет все состояния пользователя (завершение сессии).
func (t *mutationTracker) forgetScope(scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.states {
		if key.scope == scope {
			delete(t.states, key)
		}
	}
}

// confirm спрашивает подтверждение; nil Confirmer означает отказ.
func confirm(ctx context.Context, c Confirmer, prompt string) error {
	if c == nil || !c.Confirm(ctx, prompt) {
		return ErrNotConfirmed
	}
	return nil
}
