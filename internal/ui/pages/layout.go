package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Dhanushranga1/Resumitory/internal/ui/auth"
	"github.com/Dhanushranga1/Resumitory/internal/ui/i18n"
)

// htmxScript: htmx подключается с CDN.
const htmxScript = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// Shell: данные каркаса страницы.
type Shell struct {
	Lang string
	// TitleKey: i18n-ключ заголовка вкладки.
	TitleKey string
	// Active: пункт навигации (dashboard, applications, resumes).
	Active string
	User   auth.CurrentUser
}

// navItem: пункт верхней навигации.
type navItem struct {
	id   string
	href string
	key  string
}

var navItems = []navItem{
	{id: "dashboard", href: "/dashboard", key: "nav.dashboard"},
	{id: "applications", href: "/applications", key: "nav.applications"},
	{id: "resumes", href: "/resumes", key: "nav.resumes"},
}

// Layout: каркас HTML-страницы. Содержимое передаётся дочерним
// компонентом через templ.WithChildren.
func Layout(bundle *i18n.Bundle, s Shell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t := func(key string) string {
			return templ.EscapeString(bundle.Translate(s.Lang, key))
		}
		hw := &htmlWriter{w: w}

		hw.write(`<!DOCTYPE html><html lang="`, templ.EscapeString(s.Lang), `"><head>`,
			`<meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, t(s.TitleKey), ` · Resumitory</title>`,
			`<link rel="stylesheet" href="/static/css/app.css">`,
			`<script src="`, htmxScript, `" defer></script>`,
			`<script src="/static/js/app.js" defer></script>`,
			`</head>`)

		if s.User.Authenticated {
			hw.write(`<body data-events="/events">`)
		} else {
			hw.write(`<body>`)
		}

		home := "/"
		if s.User.Authenticated {
			home = "/dashboard"
		}
		hw.write(`<header class="topbar"><a class="brand" href="`, home, `">Resumitory</a>`)

		if s.User.Authenticated {
			hw.write(`<nav class="nav">`)
			for _, item := range navItems {
				hw.write(`<a href="`, item.href, `"`)
				if item.id == s.Active {
					hw.write(` class="active"`)
				}
				hw.write(`>`, t(item.key), `</a>`)
			}
			hw.write(`</nav>`)
		}

		hw.write(`<div class="topbar-right"><form method="post" action="/set-language" class="lang-switch">`)
		for _, lang := range []string{"en", "ru"} {
			hw.write(`<button name="lang" value="`, lang, `"`)
			if lang == s.Lang {
				hw.write(` class="active"`)
			}
			hw.write(`>`, langLabel(lang), `</button>`)
		}
		hw.write(`</form>`)

		if s.User.Authenticated {
			hw.write(`<span class="user">`, templ.EscapeString(s.User.Display), `</span>`,
				`<form method="post" action="/logout"><button type="submit" class="btn-link">`,
				t("nav.logout"), `</button></form>`)
		}
		hw.write(`</div></header><main class="container">`)
		if hw.err != nil {
			return hw.err
		}

		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}

		hw.write(`</main><div id="modal"></div></body></html>`)
		return hw.err
	})
}

func langLabel(lang string) string {
	if lang == "ru" {
		return "RU"
	}
	return "EN"
}

// htmlWriter запоминает первую ошибку записи.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) write(parts ...string) {
	for _, p := range parts {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, p)
	}
}
