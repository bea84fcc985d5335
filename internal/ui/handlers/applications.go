// applications.go: страница откликов и её HTMX-фрагменты: таблица
// с фильтром, модальные формы, смена статуса, удаление.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/service"
	uimiddleware "github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
	"github.com/Dhanushranga1/Resumitory/internal/ui/pages"
)

// defaultViewID: представление запросов без параметра view.
const defaultViewID = "default"

// ApplicationReader читает один отклик для формы редактирования.
type ApplicationReader interface {
	GetApplication(ctx context.Context, id string) (*model.Application, error)
}

// ApplicationsHandler: обработчики страницы откликов.
type ApplicationsHandler struct {
	view        *service.ApplicationView
	coordinator *service.ApplicationCoordinator
	forms       *service.FormController
	reader      ApplicationReader
	resumes     *service.ResumeLibrary
	pages       *pages.Renderer
	logger      *slog.Logger
}

// NewApplicationsHandler создаёт ApplicationsHandler.
func NewApplicationsHandler(
	view *service.ApplicationView,
	coordinator *service.ApplicationCoordinator,
	forms *service.FormController,
	reader ApplicationReader,
	resumes *service.ResumeLibrary,
	renderer *pages.Renderer,
	logger *slog.Logger,
) *ApplicationsHandler {
	return &ApplicationsHandler{
		view:        view,
		coordinator: coordinator,
		forms:       forms,
		reader:      reader,
		resumes:     resumes,
		pages:       renderer,
		logger:      logger.With(slog.String("component", "ui.applications")),
	}
}

// HandlePage обрабатывает GET /applications. Каждая загрузка страницы
// получает свой viewID, таблица подгружается фрагментом.
func (h *ApplicationsHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	// Неизвестный статус в URL: сообщение над фильтром, select на "all"
	filter, err := service.NewFilter(r.URL.Query().Get("search"), r.URL.Query().Get("status"))
	page := pages.ApplicationsPage{
		Filter: filter,
		ViewID: uuid.NewString(),
	}
	errors.As(err, &page.FilterError)
	render(w, r, h.logger, h.pages.Applications(page), http.StatusOK)
}

// HandleTable обрабатывает GET /partials/applications.
// Вытесненный запрос получает 204: htmx не трогает таблицу.
// Некорректный фильтр отклоняется без запроса к backend.
func (h *ApplicationsHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter, err := service.NewFilter(q.Get("search"), q.Get("status"))
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		h.logger.Debug("Некорректный фильтр", slog.String("status", q.Get("status")))
		render(w, r, h.logger, h.pages.ApplicationsTable(service.RejectedFilter(filter, vErr)), http.StatusOK)
		return
	}
	viewID := q.Get("view")
	if viewID == "" {
		viewID = defaultViewID
	}

	result, err := h.view.List(ctx, uimiddleware.Scope(ctx), viewID, filter)
	switch {
	case service.IsSuperseded(err):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		h.logger.Debug("Загрузка таблицы прервана", slog.String("error", err.Error()))
		return
	case result.LoadError != nil && backendRejected(w, r, result.LoadError):
		return
	}
	render(w, r, h.logger, h.pages.ApplicationsTable(result), http.StatusOK)
}

// HandleQuickAdd обрабатывает GET /partials/applications/quick-add.
func (h *ApplicationsHandler) HandleQuickAdd(w http.ResponseWriter, r *http.Request) {
	form := h.forms.OpenQuickAdd(uimiddleware.Scope(r.Context()))
	render(w, r, h.logger, h.pages.QuickAddForm(h.formView(r.Context(), form)), http.StatusOK)
}

// HandleNew обрабатывает GET /partials/applications/new.
func (h *ApplicationsHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	form := h.forms.OpenCreate(uimiddleware.Scope(r.Context()))
	render(w, r, h.logger, h.pages.ApplicationForm(h.formView(r.Context(), form)), http.StatusOK)
}

// HandleEdit обрабатывает GET /partials/applications/{id}/edit.
func (h *ApplicationsHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	app, err := h.reader.GetApplication(ctx, id)
	if err != nil {
		if apiclient.IsCanceled(err) || backendRejected(w, r, err) {
			return
		}
		if apiclient.IsNotFound(err) {
			render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.application_missing"}), http.StatusOK)
			return
		}
		h.logger.Warn("Не удалось загрузить отклик",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{
			Key:    "error.load_failed",
			Detail: apiclient.Message(err),
		}), http.StatusOK)
		return
	}

	form := h.forms.OpenEdit(uimiddleware.Scope(ctx), *app)
	render(w, r, h.logger, h.pages.ApplicationForm(h.formView(ctx, form)), http.StatusOK)
}

// HandleSubmitQuickAdd обрабатывает POST /partials/forms/{token}/quick-add.
func (h *ApplicationsHandler) HandleSubmitQuickAdd(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.forms.SubmitQuickAdd, h.pages.QuickAddForm)
}

// HandleSubmitFull обрабатывает POST /partials/forms/{token}/full.
func (h *ApplicationsHandler) HandleSubmitFull(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.forms.SubmitFull, h.pages.ApplicationForm)
}

// submitFunc: отправка формы контроллером.
type submitFunc func(ctx context.Context, scope, token string, values service.FormValues) (*model.Application, service.Form, error)

func (h *ApplicationsHandler) submit(
	w http.ResponseWriter,
	r *http.Request,
	send submitFunc,
	view func(pages.FormView) templ.Component,
) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.bad_request"}), http.StatusOK)
		return
	}

	_, form, err := send(ctx, uimiddleware.Scope(ctx), chi.URLParam(r, "token"), formValues(r))
	var (
		vErr *service.ValidationError
		mErr *service.MutationError
	)
	switch {
	case err == nil, errors.Is(err, service.ErrFormClosed):
		emptyFragment(w, triggerApplicationsChanged)
	case errors.Is(err, service.ErrSubmitInFlight):
		// Повторное нажатие, пока первая отправка не завершилась
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrFormNotFound):
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.form_expired"}), http.StatusOK)
	case backendRejected(w, r, err):
	case errors.As(err, &vErr), errors.As(err, &mErr):
		render(w, r, h.logger, view(h.formView(ctx, form)), http.StatusOK)
	default:
		h.logger.Error("Ошибка отправки формы", slog.String("error", err.Error()))
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.generic"}), http.StatusOK)
	}
}

// HandleCancelForm обрабатывает DELETE /partials/forms/{token}.
func (h *ApplicationsHandler) HandleCancelForm(w http.ResponseWriter, r *http.Request) {
	h.forms.Cancel(uimiddleware.Scope(r.Context()), chi.URLParam(r, "token"))
	emptyFragment(w, "")
}

// HandleSetStatus обрабатывает PATCH /partials/applications/{id}/status.
// Ответ: содержимое ячейки ошибки строки: пусто при успехе.
// При ошибке select строки возвращается к статусу из параметра previous
// (hx-swap-oob), кэш не инвалидируется.
func (h *ApplicationsHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	_, err := h.coordinator.SetStatus(ctx, uimiddleware.Scope(ctx), id, model.Status(r.FormValue("status")))
	if err == nil {
		emptyFragment(w, triggerApplicationsChanged)
		return
	}
	if backendRejected(w, r, err) {
		return
	}
	// Неизвестный previous: select не восстанавливается
	previous, _ := model.ParseStatus(r.URL.Query().Get("previous"))

	var (
		vErr *service.ValidationError
		mErr *service.MutationError
	)
	switch {
	case errors.As(err, &vErr):
		mErr = &service.MutationError{Kind: service.MutationSetStatus, TargetID: id, FallbackKey: vErr.Key, Err: err}
	case errors.As(err, &mErr):
	default:
		mErr = &service.MutationError{Kind: service.MutationSetStatus, TargetID: id, FallbackKey: "error.status_failed", Err: err}
	}
	render(w, r, h.logger, h.pages.StatusError(pages.StatusErrorView{
		ID:       id,
		Err:      mErr,
		Previous: previous,
	}), http.StatusOK)
}

// HandleDismissStatusError обрабатывает DELETE /partials/applications/{id}/status/error.
func (h *ApplicationsHandler) HandleDismissStatusError(w http.ResponseWriter, r *http.Request) {
	h.coordinator.ClearError(uimiddleware.Scope(r.Context()), service.MutationSetStatus, chi.URLParam(r, "id"))
	emptyFragment(w, "")
}

// HandleConfirmDelete обрабатывает GET /partials/applications/{id}/delete.
func (h *ApplicationsHandler) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.logger, h.pages.ConfirmDelete(pages.ConfirmView{
		PromptKey: "applications.confirm_delete",
		Action:    "/partials/applications/" + chi.URLParam(r, "id"),
	}), http.StatusOK)
}

// HandleDelete обрабатывает DELETE /partials/applications/{id}.
// Без confirmed=true запрос к backend не отправляется.
func (h *ApplicationsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	const prompt = "applications.confirm_delete"

	err := h.coordinator.Remove(ctx, uimiddleware.Scope(ctx), id, prompt, confirmedByRequest(r))
	var mErr *service.MutationError
	switch {
	case err == nil:
		emptyFragment(w, triggerApplicationsChanged)
	case errors.Is(err, service.ErrNotConfirmed):
		emptyFragment(w, "")
	case backendRejected(w, r, err):
	case errors.As(err, &mErr):
		render(w, r, h.logger, h.pages.ConfirmDelete(pages.ConfirmView{
			PromptKey: prompt,
			Action:    "/partials/applications/" + id,
			Err:       mErr,
		}), http.StatusOK)
	default:
		h.logger.Error("Ошибка удаления отклика", slog.String("id", id), slog.String("error", err.Error()))
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.delete_failed"}), http.StatusOK)
	}
}

// formView дополняет форму списком резюме. Ошибка загрузки
// библиотеки не мешает открыть форму.
func (h *ApplicationsHandler) formView(ctx context.Context, form service.Form) pages.FormView {
	view := pages.FormView{Form: form}
	result, err := h.resumes.List(ctx, uimiddleware.Scope(ctx))
	if err == nil {
		view.Resumes = result.Items
		view.ResumesError = result.LoadError
	}
	return view
}

// formValues читает поля формы отклика из запроса.
func formValues(r *http.Request) service.FormValues {
	return service.FormValues{
		Company:      r.PostFormValue("company"),
		Role:         r.PostFormValue("role"),
		Status:       r.PostFormValue("status"),
		DateApplied:  r.PostFormValue("date_applied"),
		FollowUpDate: r.PostFormValue("follow_up_date"),
		ResumeID:     r.PostFormValue("resume_id"),
		Notes:        r.PostFormValue("notes"),
	}
}

// confirmedByRequest: подтверждение из диалога: параметр confirmed=true.
func confirmedByRequest(r *http.Request) service.Confirmer {
	return service.ConfirmFunc(func(context.Context, string) bool {
		return r.FormValue("confirmed") == "true"
	})
}
