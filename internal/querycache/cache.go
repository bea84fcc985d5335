// Пакет querycache: кэш ответов backend API для веб-фронтенда.
// Записи изолированы по пользователю (scope) и адресуются логическим
// ключом: первый сегмент ключа: коллекция ("applications", "resumes").
// Инвалидация коллекции удаляет все ключи с этим префиксом.
// Обёртка над hashicorp/golang-lru/v2/expirable и x/sync/singleflight.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rw_cache_hits_total",
		Help: "Общее количество попаданий в кэш запросов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rw_cache_misses_total",
		Help: "Общее количество промахов кэша запросов.",
	})
	cacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rw_cache_invalidations_total",
		Help: "Количество инвалидаций коллекций кэша.",
	}, []string{"collection"})
)

// sep разделяет сегменты ключа хранения.
const sep = "\x00"

// Key: логический ключ запроса, например {"applications", search, status}.
type Key []string

// Collection: первый сегмент ключа.
func (k Key) Collection() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// Event: уведомление об инвалидации. Пустая Collection: сброшен
// весь scope пользователя.
type Event struct {
	Scope      string
	Collection string
}

// Listener получает уведомления об инвалидации.
type Listener func(Event)

// stamp: поколение данных на момент начала загрузки.
type stamp struct {
	scope      uint64
	collection uint64
}

// Cache: кэш запросов с TTL, дедупликацией и инвалидацией по префиксу.
type Cache struct {
	lru   *expirable.LRU[string, any]
	group singleflight.Group

	mu        sync.Mutex
	scopeGen  map[string]uint64
	collGen   map[string]uint64
	listeners map[uint64]Listener
	nextID    uint64

	logger *slog.Logger
}

// New создаёт кэш. size: максимальное число записей, ttl: время жизни записи.
func New(size int, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		lru:       expirable.NewLRU[string, any](size, nil, ttl),
		scopeGen:  make(map[string]uint64),
		collGen:   make(map[string]uint64),
		listeners: make(map[uint64]Listener),
		logger:    logger.With(slog.String("component", "query_cache")),
	}
}

// storeKey: ключ хранения: scope + сегменты.
func storeKey(scope string, key Key) string {
	return scope + sep + strings.Join(key, sep)
}

// Fetch возвращает значение ключа из кэша или загружает его через load.
// Параллельные промахи по одному ключу выполняют одну загрузку.
// Результат сохраняется, только если коллекцию не инвалидировали
// после начала загрузки: ответ, начатый до мутации, не перекрывает
// свежие данные.
func Fetch[T any](ctx context.Context, c *Cache, scope string, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if len(key) == 0 {
		return zero, errors.New("querycache: пустой ключ")
	}

	sk := storeKey(scope, key)
	if v, ok := c.lru.Get(sk); ok {
		if typed, ok := v.(T); ok {
			cacheHitsTotal.Inc()
			return typed, nil
		}
	}
	cacheMissesTotal.Inc()

	// Вторая попытка нужна, если загрузку начал другой запрос
	// и его контекст отменили раньше нашего.
	for attempt := 0; ; attempt++ {
		st := c.stamp(scope, key.Collection())
		flight := fmt.Sprintf("%s%s%d.%d", sk, sep, st.scope, st.collection)

		ch := c.group.DoChan(flight, func() (any, error) {
			val, err := load(ctx)
			if err != nil {
				return nil, err
			}
			if c.stamp(scope, key.Collection()) == st {
				c.lru.Add(sk, val)
			} else {
				c.logger.Debug("Ответ устарел после инвалидации, не сохраняется",
					slog.String("collection", key.Collection()),
				)
			}
			return val, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil && attempt == 0 {
					continue
				}
				return zero, res.Err
			}
			typed, ok := res.Val.(T)
			if !ok {
				return zero, fmt.Errorf("querycache: неожиданный тип значения %T", res.Val)
			}
			return typed, nil
		}
	}
}

// Peek возвращает значение без загрузки и без учёта в метриках.
func (c *Cache) Peek(scope string, key Key) (any, bool) {
	return c.lru.Peek(storeKey(scope, key))
}

// Len: текущее число записей.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Invalidate помечает коллекцию пользователя устаревшей:
// удаляет все её ключи и уведомляет подписчиков.
func (c *Cache) Invalidate(scope, collection string) {
	c.mu.Lock()
	c.collGen[scope+sep+collection]++
	c.mu.Unlock()

	prefix := scope + sep + collection
	removed := c.removeByPrefix(prefix)
	cacheInvalidationsTotal.WithLabelValues(collection).Inc()

	c.logger.Debug("Коллекция инвалидирована",
		slog.String("collection", collection),
		slog.Int("removed", removed),
	)
	c.notify(Event{Scope: scope, Collection: collection})
}

// InvalidateScope удаляет все записи пользователя (завершение сессии).
func (c *Cache) InvalidateScope(scope string) {
	c.mu.Lock()
	c.scopeGen[scope]++
	c.mu.Unlock()

	removed := c.removeByPrefix(scope + sep)
	c.logger.Debug("Кэш пользователя сброшен", slog.Int("removed", removed))
	c.notify(Event{Scope: scope})
}

// Subscribe регистрирует подписчика. Возвращаемая функция отписывает
// его; повторные вызовы ничего не делают.
func (c *Cache) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// stamp возвращает текущее поколение scope и коллекции.
func (c *Cache) stamp(scope, collection string) stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stamp{
		scope:      c.scopeGen[scope],
		collection: c.collGen[scope+sep+collection],
	}
}

// removeByPrefix удаляет ключи, совпадающие с prefix посегментно.
func (c *Cache) removeByPrefix(prefix string) int {
	removed := 0
	for _, k := range c.lru.Keys() {
		if k == prefix || strings.HasPrefix(k, prefix+sep) || (strings.HasSuffix(prefix, sep) && strings.HasPrefix(k, prefix)) {
			if c.lru.Remove(k) {
				removed++
			}
		}
	}
	return removed
}

// notify вызывает подписчиков вне блокировки.
func (c *Cache) notify(ev Event) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}
