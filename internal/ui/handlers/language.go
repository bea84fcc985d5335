// language.go: переключение языка интерфейса.
package handlers

import (
	"net/http"
	"time"

	"github.com/Dhanushranga1/Resumitory/internal/ui/i18n"
)

// HandleSetLanguage обрабатывает POST /set-language.
// Устанавливает cookie "lang" на год и возвращает на предыдущую страницу.
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if !i18n.IsSupported(lang) {
		lang = i18n.DefaultLang
	}

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})

	referer := r.Header.Get("Referer")
	if referer == "" {
		referer = "/dashboard"
	}
	http.Redirect(w, r, referer, http.StatusSeeOther)
}
