// Пакет pages: страницы и HTMX-фрагменты веб-интерфейса.
// Каркас страницы: компонент Layout, содержимое и фрагменты: шаблоны
// html/template, встроенные через go:embed и отдаваемые как templ.Component.
// Обработчики вызывают Render(ctx, w).
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/service"
	"github.com/Dhanushranga1/Resumitory/internal/ui/auth"
	"github.com/Dhanushranga1/Resumitory/internal/ui/i18n"
	"github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// view: корневые данные любого шаблона.
type view struct {
	Lang string
	User auth.CurrentUser
	Data any
}

// Renderer рендерит страницы и фрагменты.
type Renderer struct {
	base   *template.Template
	bundle *i18n.Bundle
	// now: текущее время для отметки просроченных follow-up.
	now func() time.Time
}

// NewRenderer разбирает встроенные шаблоны.
func NewRenderer(bundle *i18n.Bundle) (*Renderer, error) {
	base, err := template.New("pages").
		Funcs(funcMap(bundle, i18n.DefaultLang, time.Now)).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблонов: %w", err)
	}
	return &Renderer{base: base, bundle: bundle, now: time.Now}, nil
}

// page оборачивает шаблон name в Layout.
func (r *Renderer) page(name, titleKey, active string, data any) templ.Component {
	content := r.component(name, data)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		shell := Shell{
			Lang:     i18n.LangFromContext(ctx),
			TitleKey: titleKey,
			Active:   active,
			User:     middleware.CurrentUser(ctx),
		}
		return Layout(r.bundle, shell).Render(templ.WithChildren(ctx, content), w)
	})
}

// component возвращает templ.Component для шаблона name.
// Функции перевода привязываются к языку запроса на копии набора шаблонов.
func (r *Renderer) component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		lang := i18n.LangFromContext(ctx)
		t, err := r.base.Clone()
		if err != nil {
			return fmt.Errorf("ошибка копирования шаблонов: %w", err)
		}
		t.Funcs(funcMap(r.bundle, lang, r.now))

		return t.ExecuteTemplate(w, name, view{
			Lang: lang,
			User: middleware.CurrentUser(ctx),
			Data: data,
		})
	})
}

// resumeSelect: данные для списка выбора резюме.
type resumeSelect struct {
	Resumes  []model.Resume
	Selected string
}

// funcMap: функции шаблонов для языка lang.
func funcMap(bundle *i18n.Bundle, lang string, now func() time.Time) template.FuncMap {
	tr := func(key string) string { return bundle.Translate(lang, key) }
	return template.FuncMap{
		"t": tr,
		"tf": func(key string, args ...any) string {
			return bundle.Translatef(lang, key, args...)
		},
		"statuses": func() []model.Status { return model.Statuses },
		"statusLabel": func(s model.Status) string {
			return tr("status." + string(s))
		},
		"statusSelect": func(id string, s model.Status) StatusSelect {
			return StatusSelect{ID: id, Status: s}
		},
		"overdue": func(a model.Application) bool {
			return a.FollowUpOverdue(model.DateOf(now()))
		},
		"mutationError": func(e *service.MutationError) string {
			return MutationMessage(bundle, lang, e)
		},
		"loadError": func(e *service.LoadError) string {
			if e == nil {
				return ""
			}
			if e.Message != "" {
				return tr("error.load_failed") + ": " + e.Message
			}
			return tr("error.load_failed")
		},
		"fieldError": func(v *service.ValidationError, field string) string {
			if v == nil || v.Field != field {
				return ""
			}
			return tr(v.Key)
		},
		"deref": model.Deref,
		"formatDate": func(raw string) string {
			return FormatDate(lang, raw)
		},
		"resumeOptions": func(resumes []model.Resume, selected string) resumeSelect {
			return resumeSelect{Resumes: resumes, Selected: selected}
		},
		"join": strings.Join,
	}
}

// MutationMessage: текст ошибки мутации: сообщение backend
// или общий перевод по FallbackKey.
func MutationMessage(bundle *i18n.Bundle, lang string, e *service.MutationError) string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.FallbackKey != "" {
		return bundle.Translate(lang, e.FallbackKey)
	}
	return bundle.Translate(lang, "error.generic")
}

// FormatDate форматирует YYYY-MM-DD для отображения.
// Пустая строка остаётся пустой, неразборчивая дата выводится как есть.
func FormatDate(lang, raw string) string {
	if raw == "" {
		return ""
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return raw
	}
	t := d.Time()
	if lang == "ru" {
		return t.Format("02.01.2006")
	}
	return t.Format("Jan 2, 2006")
}
