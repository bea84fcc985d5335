// events.go: SSE-поток инвалидаций кэша для открытых вкладок.
// Вкладка получает event: invalidate с именем коллекции и перезагружает
// соответствующие фрагменты; при завершении сессии: event: session-ended.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Dhanushranga1/Resumitory/internal/querycache"
	"github.com/Dhanushranga1/Resumitory/internal/ui/auth"
	uimiddleware "github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
)

// sseRetry: интервал переподключения EventSource, мс.
const sseRetry = 5000

// EventsHandler: обработчик GET /events.
type EventsHandler struct {
	cache     *querycache.Cache
	notifier  *auth.Notifier
	keepalive time.Duration
	logger    *slog.Logger
}

// NewEventsHandler создаёт EventsHandler.
// keepalive: интервал комментариев-пингов (RW_SSE_KEEPALIVE).
func NewEventsHandler(cache *querycache.Cache, notifier *auth.Notifier, keepalive time.Duration, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		cache:     cache,
		notifier:  notifier,
		keepalive: keepalive,
		logger:    logger.With(slog.String("component", "ui.events")),
	}
}

// invalidateEvent: данные event: invalidate.
type invalidateEvent struct {
	Collection string `json:"collection"`
}

// pendingSet накапливает инвалидированные коллекции между отправками.
// Повторные инвалидации одной коллекции схлопываются.
type pendingSet struct {
	mu     sync.Mutex
	names  map[string]struct{}
	order  []string
	signal chan struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{names: make(map[string]struct{}), signal: make(chan struct{}, 1)}
}

func (p *pendingSet) add(collection string) {
	p.mu.Lock()
	if _, ok := p.names[collection]; !ok {
		p.names[collection] = struct{}{}
		p.order = append(p.order, collection)
	}
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *pendingSet) drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.order
	p.order = nil
	clear(p.names)
	return out
}

// HandleEvents обрабатывает GET /events. Поток живёт до отключения
// клиента или завершения сессии пользователя.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	session := uimiddleware.SessionFromContext(r.Context())
	if session == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	subject := session.Subject

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController находит http.Flusher через Unwrap() обёрток middleware
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}

	pending := newPendingSet()
	unsubscribe := h.cache.Subscribe(func(ev querycache.Event) {
		if ev.Scope == subject && ev.Collection != "" {
			pending.add(ev.Collection)
		}
	})
	defer unsubscribe()

	ended := make(chan struct{})
	var endOnce sync.Once
	watcher := auth.NewWatcher(h.notifier)
	watcher.Rebind(func(ev auth.SessionEvent) {
		if ev.Kind == auth.SessionEnded && ev.Subject == subject {
			endOnce.Do(func() { close(ended) })
		}
	})
	defer watcher.Close()

	ctx := r.Context()
	h.logger.Debug("SSE клиент подключён",
		slog.String("username", session.Username),
		slog.String("remote_addr", r.RemoteAddr),
	)

	fmt.Fprintf(w, "retry: %d\n\n", sseRetry)
	_ = rc.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён", slog.String("username", session.Username))
			return
		case <-ended:
			fmt.Fprint(w, "event: session-ended\ndata: {}\n\n")
			_ = rc.Flush()
			return
		case <-pending.signal:
			for _, collection := range pending.drain() {
				data, err := json.Marshal(invalidateEvent{Collection: collection})
				if err != nil {
					h.logger.Error("Ошибка сериализации invalidate", slog.String("error", err.Error()))
					continue
				}
				fmt.Fprintf(w, "event: invalidate\ndata: %s\n\n", data)
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
