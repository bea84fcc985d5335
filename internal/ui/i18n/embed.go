package i18n

import "embed"

// LocaleFS: каталоги переводов, встроенные при компиляции.
//
//go:embed locales/*.json
var LocaleFS embed.FS
