// events.go: уведомления о смене сессии (вход, обновление токена, выход)
// и текущий пользователь для шаблонов и сервисного слоя.
package auth

import (
	"log/slog"
	"sync"
	"time"
)

// SessionEventKind: вид изменения сессии.
type SessionEventKind string

const (
	SessionStarted   SessionEventKind = "started"
	SessionRefreshed SessionEventKind = "refreshed"
	SessionEnded     SessionEventKind = "ended"
)

// SessionEvent: изменение сессии пользователя.
type SessionEvent struct {
	Kind    SessionEventKind
	Subject string
	At      time.Time
}

// CurrentUser: пользователь текущего запроса.
type CurrentUser struct {
	Authenticated bool
	Subject       string
	Display       string
}

// CurrentUserFrom строит CurrentUser из сессии (nil: аноним).
func CurrentUserFrom(s *SessionData) CurrentUser {
	if s == nil || s.Subject == "" {
		return CurrentUser{}
	}
	return CurrentUser{Authenticated: true, Subject: s.Subject, Display: s.Display()}
}

// Notifier рассылает события сессий подписчикам.
type Notifier struct {
	mu     sync.Mutex
	subs   map[uint64]func(SessionEvent)
	nextID uint64
	logger *slog.Logger
}

// NewNotifier создаёт Notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		subs:   make(map[uint64]func(SessionEvent)),
		logger: logger.With(slog.String("component", "session_notifier")),
	}
}

// Subscribe регистрирует обработчик событий.
func (n *Notifier) Subscribe(fn func(SessionEvent)) *Subscription {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return &Subscription{teardown: func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}}
}

// Publish вызывает подписчиков синхронно, вне блокировки.
func (n *Notifier) Publish(ev SessionEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	n.mu.Lock()
	handlers := make([]func(SessionEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()

	n.logger.Debug("Событие сессии",
		slog.String("kind", string(ev.Kind)),
		slog.Int("subscribers", len(handlers)),
	)
	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribers: число активных подписок.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Subscription: подписка на события сессий.
type Subscription struct {
	once     sync.Once
	teardown func()
}

// Unsubscribe отменяет подписку; повторные вызовы ничего не делают.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.teardown)
}

// Watcher держит не более одной активной подписки.
type Watcher struct {
	notifier *Notifier

	mu  sync.Mutex
	sub *Subscription
}

// NewWatcher создаёт Watcher без подписки.
func NewWatcher(n *Notifier) *Watcher {
	return &Watcher{notifier: n}
}

// Rebind снимает предыдущую подписку и подписывает fn.
func (w *Watcher) Rebind(fn func(SessionEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sub.Unsubscribe()
	w.sub = w.notifier.Subscribe(fn)
}

// Close снимает текущую подписку.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sub.Unsubscribe()
	w.sub = nil
}
