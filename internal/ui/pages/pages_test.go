package pages

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/service"
	"github.com/Dhanushranga1/Resumitory/internal/ui/auth"
	"github.com/Dhanushranga1/Resumitory/internal/ui/i18n"
	"github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	bundle := i18n.NewBundle(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		t.Fatal(err)
	}
	r, err := NewRenderer(bundle)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func userContext(lang string) context.Context {
	ctx := i18n.WithLang(context.Background(), lang)
	return middleware.WithSession(ctx, &auth.SessionData{Subject: "user-1", Username: "dhanush"})
}

func TestLoginPage(t *testing.T) {
	r := testRenderer(t)

	html := render(t, i18n.WithLang(context.Background(), "en"), r.Login(LoginData{ErrorKey: "login.error_expired"}))
	for _, want := range []string{`href="/auth/start"`, `href="/signup"`, "Your session has expired"} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q в странице входа", want)
		}
	}
	if strings.Contains(html, `data-events=`) {
		t.Error("аноним не подписывается на события")
	}
}

func TestApplicationsTable(t *testing.T) {
	r := testRenderer(t)
	follow := "2024-03-10"
	result := service.ViewResult{
		Filter: service.Filter{Status: service.StatusAll},
		Items: []model.Application{
			{ID: "a1", Company: "Acme <Corp>", Role: "SRE", Status: model.StatusInterview, DateApplied: "2024-03-01", FollowUpDate: &follow},
			{ID: "a2", Company: "Globex", Role: "Go dev", Status: model.StatusApplied, DateApplied: "not-a-date"},
		},
	}

	html := render(t, userContext("en"), r.ApplicationsTable(result))

	for _, want := range []string{
		"Acme &lt;Corp&gt;",
		`hx-patch="/partials/applications/a1/status"`,
		`hx-get="/partials/applications/a2/edit"`,
		"Mar 1, 2024",
		"Mar 10, 2024",
		"not-a-date",
		`<option value="interview" selected>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q в таблице:\n%s", want, html)
		}
	}
}

func TestApplicationsTable_EmptyAndError(t *testing.T) {
	r := testRenderer(t)
	ctx := userContext("en")

	tests := []struct {
		name   string
		result service.ViewResult
		want   string
	}{
		{name: "пусто", result: service.ViewResult{Filter: service.Filter{Status: service.StatusAll}}, want: "No applications yet"},
		{name: "нет совпадений", result: service.ViewResult{Filter: service.Filter{Search: "x", Status: service.StatusAll}}, want: "No applications match"},
		{
			name:   "ошибка загрузки",
			result: service.ViewResult{LoadError: &service.LoadError{Message: "backend down", Err: errors.New("x")}},
			want:   "Could not load data: backend down",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if html := render(t, ctx, r.ApplicationsTable(tt.result)); !strings.Contains(html, tt.want) {
				t.Errorf("нет %q:\n%s", tt.want, html)
			}
		})
	}
}

func TestApplicationForm_ValidationAndBackendError(t *testing.T) {
	r := testRenderer(t)
	form := service.Form{
		Token: "tok",
		Kind:  service.FormFull,
		Mode:  service.FormModeEdit,
		Values: service.FormValues{
			Company: "Acme", Status: "offer", DateApplied: "2024-01-05", ResumeID: "r2",
		},
		Invalid: &service.ValidationError{Field: "role", Key: "validation.role_required"},
		Err:     &service.MutationError{FallbackKey: "error.save_failed"},
	}
	data := FormView{Form: form, Resumes: []model.Resume{{ID: "r1", Name: "Backend"}, {ID: "r2", Name: "SRE"}}}

	html := render(t, userContext("ru"), r.ApplicationForm(data))
	for _, want := range []string{
		`hx-post="/partials/forms/tok/full"`,
		"Укажите должность.",
		"Не удалось сохранить изменения.",
		`<option value="r2" selected>`,
		`<option value="offer" selected>`,
		"Сохранить",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q в форме:\n%s", want, html)
		}
	}
}

func TestMutationMessage(t *testing.T) {
	bundle := i18n.NewBundle(nil)
	_ = bundle.LoadMessages("en", []byte(`{"error.delete_failed":"Could not delete.","error.generic":"Oops"}`))

	tests := []struct {
		name string
		err  *service.MutationError
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "сообщение backend", err: &service.MutationError{Message: "Resume not found", FallbackKey: "error.delete_failed"}, want: "Resume not found"},
		{name: "fallback", err: &service.MutationError{FallbackKey: "error.delete_failed"}, want: "Could not delete."},
		{name: "generic", err: &service.MutationError{}, want: "Oops"},
	}
	for _, tt := range tests {
		if got := MutationMessage(bundle, "en", tt.err); got != tt.want {
			t.Errorf("%s: %q, ожидалось %q", tt.name, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		lang, raw, want string
	}{
		{"en", "2024-01-05", "Jan 5, 2024"},
		{"ru", "2024-01-05", "05.01.2024"},
		{"en", "2024-01-05T10:00:00Z", "Jan 5, 2024"},
		{"en", "", ""},
		{"en", "soon", "soon"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.lang, tt.raw); got != tt.want {
			t.Errorf("FormatDate(%s, %q) = %q, ожидалось %q", tt.lang, tt.raw, got, tt.want)
		}
	}
}

func TestDashboardPanels(t *testing.T) {
	r := testRenderer(t)
	summary := service.Summary{
		TotalApplications: 7,
		ByStatus:          []service.StatusCount{{Status: model.StatusApplied, Count: 7}},
		ResumesError:      &service.LoadError{Err: errors.New("down")},
	}

	html := render(t, userContext("en"), r.Dashboard(summary))
	if !strings.Contains(html, `<p class="stat-value">7</p>`) {
		t.Error("нет общего числа откликов")
	}
	if !strings.Contains(html, "Could not load data") {
		t.Error("нет ошибки панели резюме")
	}
	if !strings.Contains(html, `data-events="/events"`) {
		t.Error("страница пользователя подписывается на /events")
	}
}

func TestLayout_Shell(t *testing.T) {
	r := testRenderer(t)

	html := render(t, userContext("en"), r.Dashboard(service.Summary{}))
	for _, want := range []string{
		`<html lang="en">`,
		`<title>Dashboard · Resumitory</title>`,
		`<a href="/dashboard" class="active">Dashboard</a>`,
		`<a href="/applications">Applications</a>`,
		`<span class="user">dhanush</span>`,
		`<button name="lang" value="en" class="active">EN</button>`,
		`action="/logout"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q в каркасе:\n%s", want, html)
		}
	}
	content := strings.Index(html, `class="stat-value"`)
	modal := strings.Index(html, `<div id="modal"></div>`)
	if content < 0 || modal < content || !strings.HasSuffix(html, "</html>") {
		t.Error("содержимое страницы должно идти внутри <main> перед модальным контейнером")
	}

	anon := render(t, i18n.WithLang(context.Background(), "ru"), r.Login(LoginData{}))
	if !strings.Contains(anon, `<html lang="ru">`) || strings.Contains(anon, `class="nav"`) || strings.Contains(anon, "/logout") {
		t.Errorf("каркас анонима:\n%s", anon)
	}
}

func TestApplicationsTable_OverdueFollowUp(t *testing.T) {
	r := testRenderer(t)
	r.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }
	past, future := "2024-03-10", "2024-04-01"
	result := service.ViewResult{
		Filter: service.Filter{Status: service.StatusAll},
		Items: []model.Application{
			{ID: "a1", Company: "Acme", Status: model.StatusInterview, DateApplied: "2024-03-01", FollowUpDate: &past},
			{ID: "a2", Company: "Globex", Status: model.StatusRejected, DateApplied: "2024-03-01", FollowUpDate: &past},
			{ID: "a3", Company: "Initech", Status: model.StatusApplied, DateApplied: "2024-03-01", FollowUpDate: &future},
		},
	}

	html := render(t, userContext("en"), r.ApplicationsTable(result))
	if n := strings.Count(html, "Follow-up overdue"); n != 1 {
		t.Errorf("просроченных отметок %d, ожидалась 1:\n%s", n, html)
	}
}

func TestApplicationsTable_FilterError(t *testing.T) {
	r := testRenderer(t)
	result := service.RejectedFilter(service.Filter{Status: service.StatusAll},
		&service.ValidationError{Field: "status", Key: "validation.status_invalid"})

	html := render(t, userContext("en"), r.ApplicationsTable(result))
	if !strings.Contains(html, "Unknown status.") || strings.Contains(html, "<table") {
		t.Errorf("фрагмент отклонённого фильтра:\n%s", html)
	}
}

func TestStatusError_RestoresSelect(t *testing.T) {
	r := testRenderer(t)
	ctx := userContext("en")

	html := render(t, ctx, r.StatusError(StatusErrorView{
		ID:       "a1",
		Err:      &service.MutationError{Message: "boom"},
		Previous: model.StatusApplied,
	}))
	for _, want := range []string{
		"boom",
		`hx-delete="/partials/applications/a1/status/error"`,
		`id="status-a1"`,
		`hx-swap-oob="true"`,
		`<option value="applied" selected>`,
		`hx-patch="/partials/applications/a1/status?previous=applied"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, `<option value="offer" selected>`) {
		t.Error("выбран статус, отвергнутый backend")
	}

	noPrevious := render(t, ctx, r.StatusError(StatusErrorView{ID: "a1", Err: &service.MutationError{Message: "boom"}}))
	if strings.Contains(noPrevious, "<select") {
		t.Error("без previous select не восстанавливается")
	}
}

func TestForms_SubmitDisabledWhileInFlight(t *testing.T) {
	r := testRenderer(t)
	ctx := userContext("en")
	const disabled = `hx-disabled-elt="find button[type=submit]"`

	components := map[string]templ.Component{
		"быстрое добавление": r.QuickAddForm(FormView{Form: service.Form{Token: "tok", Kind: service.FormQuickAdd}}),
		"полная форма":       r.ApplicationForm(FormView{Form: service.Form{Token: "tok", Kind: service.FormFull}}),
		"загрузка резюме":    r.ResumeUploadForm(UploadView{}),
		"правка резюме":      r.ResumeForm(ResumeFormView{ID: "r1", Name: "Backend"}),
		"удаление":           r.ConfirmDelete(ConfirmView{PromptKey: "applications.confirm_delete", Action: "/partials/applications/a1"}),
	}
	for name, c := range components {
		t.Run(name, func(t *testing.T) {
			if html := render(t, ctx, c); !strings.Contains(html, disabled) {
				t.Errorf("кнопка отправки не блокируется:\n%s", html)
			}
		})
	}
}

func TestResumeForm(t *testing.T) {
	r := testRenderer(t)

	html := render(t, userContext("en"), r.ResumeForm(ResumeFormView{
		ID:      "r1",
		Name:    "",
		Tags:    "go, sre",
		Notes:   "tailored",
		Invalid: &service.ValidationError{Field: "name", Key: "validation.name_required"},
	}))
	for _, want := range []string{
		`hx-patch="/partials/resumes/r1"`,
		`value="go, sre"`,
		">tailored</textarea>",
		"Name is required.",
		"Edit resume",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q:\n%s", want, html)
		}
	}
}
