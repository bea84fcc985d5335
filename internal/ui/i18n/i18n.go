// Пакет i18n: интернационализация веб-интерфейса Resumitory.
// Каталоги переводов: плоские JSON (ключ → строка), язык запроса
// хранится в контексте и определяется Middleware.
// Поддерживаемые языки: English (en), Русский (ru).
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang: язык по умолчанию и язык fallback-перевода.
const DefaultLang = "en"

var (
	// SupportedLanguages: теги поддерживаемых языков.
	SupportedLanguages = []language.Tag{
		language.English,
		language.Russian,
	}

	// matcher: языковой matcher для Accept-Language.
	matcher = language.NewMatcher(SupportedLanguages)
)

// contextKey: тип ключа для контекста.
type contextKey string

const contextKeyLang contextKey = "i18n_lang"

// Bundle: каталоги переводов всех языков. Загружается при старте.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string // lang → key → translation
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		logger:   logger,
	}
}

// LoadMessages загружает JSON-каталог для языка.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", lang, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[lang] = messages

	if b.logger != nil {
		b.logger.Debug("i18n каталог загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Translate возвращает перевод: язык → английский → сам ключ.
func (b *Bundle) Translate(lang, key string) string {
	if msg, ok := b.lookup(lang, key); ok {
		return msg
	}
	if lang != DefaultLang {
		if msg, ok := b.lookup(DefaultLang, key); ok {
			return msg
		}
	}
	return key
}

// Has: ключ есть в каталоге языка (без fallback).
func (b *Bundle) Has(lang, key string) bool {
	_, ok := b.lookup(lang, key)
	return ok
}

// Keys возвращает ключи каталога языка.
func (b *Bundle) Keys(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.catalogs[lang]))
	for k := range b.catalogs[lang] {
		keys = append(keys, k)
	}
	return keys
}

func (b *Bundle) lookup(lang, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.catalogs[lang][key]
	return msg, ok
}

// Translatef: перевод с подстановкой аргументов.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	template := b.Translate(lang, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

// T: перевод на язык из контекста.
func (b *Bundle) T(ctx context.Context, key string) string {
	return b.Translate(LangFromContext(ctx), key)
}

// Tf: перевод с аргументами на язык из контекста.
func (b *Bundle) Tf(ctx context.Context, key string, args ...any) string {
	return b.Translatef(LangFromContext(ctx), key, args...)
}

// formatFunc: fmt.Sprintf через переменную: формат-строки приходят
// из каталогов, go vet printf-проверка к ним неприменима.
//
//nolint:govet // обход go vet printf-анализатора
var formatFunc = fmt.Sprintf

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKeyLang, lang)
}

// LangFromContext извлекает язык из контекста. Default: "en".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKeyLang).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// IsSupported: язык есть среди поддерживаемых.
func IsSupported(lang string) bool {
	return lang == "en" || lang == "ru"
}

// MatchLanguage выбирает язык по заголовку Accept-Language.
func MatchLanguage(acceptLanguage string) string {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	base, _ := tag.Base()
	if strings.HasPrefix(base.String(), "ru") {
		return "ru"
	}
	return DefaultLang
}
