// Пакет static содержит встроенные статические ресурсы веб-интерфейса:
// стили и клиентский скрипт (SSE-подписка, модальные окна).
// htmx подключается с CDN в шаблоне layout.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed css/*.css js/*.js
var content embed.FS

// FileSystem возвращает http.FileSystem для /static/*.
func FileSystem() http.FileSystem {
	return http.FS(content)
}

// FS возвращает fs.FS для прямого доступа к файлам.
func FS() fs.FS {
	return content
}
