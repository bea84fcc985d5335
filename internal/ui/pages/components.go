package pages

import (
	"github.com/a-h/templ"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/service"
)

// LoginData: страница входа.
type LoginData struct {
	// ErrorKey: i18n-ключ сообщения (неудачный вход, истёкшая сессия).
	ErrorKey string
}

// ErrorData: страница ошибки.
type ErrorData struct {
	Key string
}

// ApplicationsPage: каркас страницы откликов.
type ApplicationsPage struct {
	Filter service.Filter
	// ViewID: идентификатор представления для правила «последний запрос побеждает».
	ViewID string
	// FilterError: статус из URL отклонён, фильтр сброшен на "all".
	FilterError *service.ValidationError
}

// FormView: модальная форма отклика.
type FormView struct {
	Form         service.Form
	Resumes      []model.Resume
	ResumesError *service.LoadError
}

// ConfirmView: диалог подтверждения удаления.
type ConfirmView struct {
	PromptKey string
	Action    string
	Err       *service.MutationError
}

// UploadView: форма загрузки резюме.
type UploadView struct {
	Name    string
	Tags    string
	Notes   string
	Err     *service.MutationError
	Invalid *service.ValidationError
}

// StatusSelect: выбор статуса в строке таблицы.
// OOB: select заменяет одноимённый элемент через hx-swap-oob.
type StatusSelect struct {
	ID     string
	Status model.Status
	OOB    bool
}

// StatusErrorView: ответ на неудачную смену статуса.
type StatusErrorView struct {
	ID  string
	Err *service.MutationError
	// Previous: статус, показанный до изменения; пустой: select не восстанавливается.
	Previous model.Status
}

// Restore: select с прежним статусом, заменяющий изменённый пользователем.
func (v StatusErrorView) Restore() *StatusSelect {
	if v.Previous == "" {
		return nil
	}
	return &StatusSelect{ID: v.ID, Status: v.Previous, OOB: true}
}

// ResumeFormView: модальная форма метаданных резюме.
type ResumeFormView struct {
	ID      string
	Name    string
	Tags    string
	Notes   string
	Err     *service.MutationError
	Invalid *service.ValidationError
}

// ResumesPage: страница библиотеки резюме.
type ResumesPage struct {
	Upload UploadView
}

// Login: страница входа.
func (r *Renderer) Login(data LoginData) templ.Component {
	return r.page("login", "login.title", "", data)
}

// ErrorPage: страница ошибки.
func (r *Renderer) ErrorPage(data ErrorData) templ.Component {
	return r.page("error_page", "error.page_title", "", data)
}

// Dashboard: главная страница.
func (r *Renderer) Dashboard(summary service.Summary) templ.Component {
	return r.page("dashboard", "dashboard.title", "dashboard", summary)
}

// Applications: страница откликов; таблица подгружается фрагментом.
func (r *Renderer) Applications(data ApplicationsPage) templ.Component {
	return r.page("applications", "applications.title", "applications", data)
}

// ApplicationsTable: фрагмент таблицы откликов.
func (r *Renderer) ApplicationsTable(result service.ViewResult) templ.Component {
	return r.component("applications_table", result)
}

// QuickAddForm: модальная форма быстрого добавления.
func (r *Renderer) QuickAddForm(data FormView) templ.Component {
	return r.component("quick_add_form", data)
}

// ApplicationForm: модальная полная форма.
func (r *Renderer) ApplicationForm(data FormView) templ.Component {
	return r.component("application_form", data)
}

// ConfirmDelete: диалог подтверждения удаления.
func (r *Renderer) ConfirmDelete(data ConfirmView) templ.Component {
	return r.component("confirm_delete", data)
}

// InlineError: сообщение об ошибке мутации в строке таблицы или карточке.
func (r *Renderer) InlineError(err *service.MutationError) templ.Component {
	return r.component("inline_error", err)
}

// StatusError: сообщение об ошибке смены статуса и восстановленный select.
func (r *Renderer) StatusError(data StatusErrorView) templ.Component {
	return r.component("status_error", data)
}

// ResumeForm: модальная форма редактирования резюме.
func (r *Renderer) ResumeForm(data ResumeFormView) templ.Component {
	return r.component("resume_form", data)
}

// Resumes: страница библиотеки резюме.
func (r *Renderer) Resumes(data ResumesPage) templ.Component {
	return r.page("resumes", "resumes.title", "resumes", data)
}

// ResumeUploadForm: фрагмент формы загрузки.
func (r *Renderer) ResumeUploadForm(data UploadView) templ.Component {
	return r.component("resume_upload_form", ResumesPage{Upload: data})
}

// ResumesGrid: фрагмент сетки резюме.
func (r *Renderer) ResumesGrid(result service.ResumeResult) templ.Component {
	return r.component("resumes_grid", result)
}

// ModalErrorData: ошибка, показанная в модальном окне.
type ModalErrorData struct {
	Key    string
	Detail string
}

// ModalError: модальное окно с ошибкой (форма истекла, отклик не найден).
func (r *Renderer) ModalError(data ModalErrorData) templ.Component {
	return r.component("modal_error", data)
}
