// resumes.go: библиотека резюме: сетка, загрузка PDF/TeX,
// правка метаданных, клонирование и удаление.
package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/service"
	uimiddleware "github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
	"github.com/Dhanushranga1/Resumitory/internal/ui/pages"
)

// maxUploadBody: предел тела multipart-запроса: оба файла и поля формы.
const maxUploadBody = service.MaxPDFSize + service.MaxTexSize + 64<<10

// ResumesHandler: обработчики библиотеки резюме.
type ResumesHandler struct {
	library *service.ResumeLibrary
	pages   *pages.Renderer
	logger  *slog.Logger
}

// NewResumesHandler создаёт ResumesHandler.
func NewResumesHandler(library *service.ResumeLibrary, renderer *pages.Renderer, logger *slog.Logger) *ResumesHandler {
	return &ResumesHandler{
		library: library,
		pages:   renderer,
		logger:  logger.With(slog.String("component", "ui.resumes")),
	}
}

// HandlePage обрабатывает GET /resumes.
func (h *ResumesHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.logger, h.pages.Resumes(pages.ResumesPage{}), http.StatusOK)
}

// HandleGrid обрабатывает GET /partials/resumes.
func (h *ResumesHandler) HandleGrid(w http.ResponseWriter, r *http.Request) {
	result, err := h.library.List(r.Context(), uimiddleware.Scope(r.Context()))
	if err != nil {
		h.logger.Debug("Загрузка библиотеки прервана", slog.String("error", err.Error()))
		return
	}
	if result.LoadError != nil && backendRejected(w, r, result.LoadError) {
		return
	}
	render(w, r, h.logger, h.pages.ResumesGrid(result), http.StatusOK)
}

// HandleUpload обрабатывает POST /partials/resumes (multipart/form-data).
// Успех: пустая форма и событие resumes-changed, ошибка: форма
// с сохранёнными полями и сообщением.
func (h *ResumesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		var tooLarge *http.MaxBytesError
		form := pages.UploadView{Invalid: &service.ValidationError{Field: "pdf_file", Key: "validation.pdf_too_large"}}
		if !errors.As(err, &tooLarge) {
			h.logger.Warn("Некорректный multipart-запрос", slog.String("error", err.Error()))
			form = pages.UploadView{Err: &service.MutationError{Kind: service.MutationUploadResume, FallbackKey: "error.bad_request", Err: err}}
		}
		render(w, r, h.logger, h.pages.ResumeUploadForm(form), http.StatusOK)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := pages.UploadView{
		Name:  r.FormValue("name"),
		Tags:  r.FormValue("tags"),
		Notes: r.FormValue("notes"),
	}
	upload := model.ResumeUpload{
		Name:  form.Name,
		Notes: form.Notes,
		Tags:  service.ParseTags(form.Tags),
	}

	pdf, closePDF := formFile(r, "pdf_file")
	defer closePDF()
	tex, closeTex := formFile(r, "tex_file")
	defer closeTex()
	upload.PDF, upload.Tex = pdf, tex

	_, err := h.library.Upload(ctx, uimiddleware.Scope(ctx), upload)
	if err == nil {
		w.Header().Set("HX-Trigger", triggerResumesChanged)
		render(w, r, h.logger, h.pages.ResumeUploadForm(pages.UploadView{}), http.StatusOK)
		return
	}
	if backendRejected(w, r, err) {
		return
	}

	var (
		vErr *service.ValidationError
		mErr *service.MutationError
	)
	switch {
	case errors.As(err, &vErr):
		form.Invalid = vErr
	case errors.As(err, &mErr):
		form.Err = mErr
	default:
		form.Err = &service.MutationError{Kind: service.MutationUploadResume, FallbackKey: "error.upload_failed", Err: err}
	}
	render(w, r, h.logger, h.pages.ResumeUploadForm(form), http.StatusOK)
}

// HandleEdit обрабатывает GET /partials/resumes/{id}/edit.
// Форма заполняется из снимка библиотеки в кэше.
func (h *ResumesHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	resume, err := h.library.Get(ctx, uimiddleware.Scope(ctx), id)
	switch {
	case err == nil:
	case apiclient.IsCanceled(err), backendRejected(w, r, err):
		return
	case errors.Is(err, service.ErrResumeNotFound):
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.resume_missing"}), http.StatusOK)
		return
	default:
		h.logger.Warn("Не удалось загрузить резюме",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{
			Key:    "error.load_failed",
			Detail: apiclient.Message(err),
		}), http.StatusOK)
		return
	}

	render(w, r, h.logger, h.pages.ResumeForm(pages.ResumeFormView{
		ID:    resume.ID,
		Name:  resume.Name,
		Tags:  strings.Join(resume.Tags, ", "),
		Notes: model.Deref(resume.Notes),
	}), http.StatusOK)
}

// HandleUpdate обрабатывает PATCH /partials/resumes/{id}.
// Успех: модальное окно закрывается, событие resumes-changed.
// Ошибка: форма с введёнными значениями и сообщением.
func (h *ResumesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := r.ParseForm(); err != nil {
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.bad_request"}), http.StatusOK)
		return
	}
	form := pages.ResumeFormView{
		ID:    id,
		Name:  r.PostFormValue("name"),
		Tags:  r.PostFormValue("tags"),
		Notes: r.PostFormValue("notes"),
	}

	// Очищенные заметки уходят как null
	_, err := h.library.Update(ctx, uimiddleware.Scope(ctx), id, model.ResumePatch{
		Name:  model.Value(strings.TrimSpace(form.Name)),
		Tags:  model.Value(service.ParseTags(form.Tags)),
		Notes: model.OptionalValue(strings.TrimSpace(form.Notes)),
	})

	var (
		vErr *service.ValidationError
		mErr *service.MutationError
	)
	switch {
	case err == nil:
		emptyFragment(w, triggerResumesChanged)
		return
	case backendRejected(w, r, err):
		return
	case apiclient.IsNotFound(err):
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.resume_missing"}), http.StatusOK)
		return
	case errors.As(err, &vErr):
		form.Invalid = vErr
	case errors.As(err, &mErr):
		form.Err = mErr
	default:
		form.Err = &service.MutationError{Kind: service.MutationUpdateResume, TargetID: id, FallbackKey: "error.save_failed", Err: err}
	}
	render(w, r, h.logger, h.pages.ResumeForm(form), http.StatusOK)
}

// HandleClone обрабатывает POST /partials/resumes/{id}/clone.
func (h *ResumesHandler) HandleClone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	_, err := h.library.Clone(ctx, uimiddleware.Scope(ctx), id)
	if err == nil {
		emptyFragment(w, triggerResumesChanged)
		return
	}
	if backendRejected(w, r, err) {
		return
	}
	var mErr *service.MutationError
	if !errors.As(err, &mErr) {
		mErr = &service.MutationError{Kind: service.MutationCloneResume, TargetID: id, FallbackKey: "error.clone_failed", Err: err}
	}
	render(w, r, h.logger, h.pages.InlineError(mErr), http.StatusOK)
}

// HandleConfirmDelete обрабатывает GET /partials/resumes/{id}/delete.
func (h *ResumesHandler) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.logger, h.pages.ConfirmDelete(pages.ConfirmView{
		PromptKey: "resumes.confirm_delete",
		Action:    "/partials/resumes/" + chi.URLParam(r, "id"),
	}), http.StatusOK)
}

// HandleDelete обрабатывает DELETE /partials/resumes/{id}.
func (h *ResumesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	const prompt = "resumes.confirm_delete"

	err := h.library.Remove(ctx, uimiddleware.Scope(ctx), id, prompt, confirmedByRequest(r))
	var mErr *service.MutationError
	switch {
	case err == nil:
		emptyFragment(w, triggerResumesChanged)
	case errors.Is(err, service.ErrNotConfirmed):
		emptyFragment(w, "")
	case backendRejected(w, r, err):
	case errors.As(err, &mErr):
		render(w, r, h.logger, h.pages.ConfirmDelete(pages.ConfirmView{
			PromptKey: prompt,
			Action:    "/partials/resumes/" + id,
			Err:       mErr,
		}), http.StatusOK)
	default:
		h.logger.Error("Ошибка удаления резюме", slog.String("id", id), slog.String("error", err.Error()))
		render(w, r, h.logger, h.pages.ModalError(pages.ModalErrorData{Key: "error.delete_failed"}), http.StatusOK)
	}
}

// formFile открывает файл формы. Отсутствующий файл: nil.
func formFile(r *http.Request, field string) (*model.FilePart, func()) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	return filePart(file, header), func() { _ = file.Close() }
}

func filePart(file multipart.File, header *multipart.FileHeader) *model.FilePart {
	return &model.FilePart{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
}
