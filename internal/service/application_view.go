// application_view.go: состояние списка откликов: фильтр, сортировка,
// загрузка через кэш запросов. Фильтрация выполняется на backend,
// сортировка по date_applied (новые сверху): здесь.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/querycache"
)

// Коллекции кэша запросов.
const (
	CollectionApplications = "applications"
	CollectionResumes      = "resumes"
)

// StatusAll: фильтр без ограничения по статусу.
const StatusAll = "all"

// Filter: фильтр списка откликов.
type Filter struct {
	Search string
	Status string
}

// NewFilter нормализует фильтр: обрезает поиск, пустой статус: "all".
// Неизвестный статус: ValidationError.
func NewFilter(search, status string) (Filter, error) {
	f := Filter{Search: strings.TrimSpace(search), Status: StatusAll}
	status = strings.TrimSpace(status)
	if status == "" || strings.EqualFold(status, StatusAll) {
		return f, nil
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return Filter{Search: f.Search, Status: StatusAll}, newValidationError("status", "validation.status_invalid")
	}
	f.Status = string(st)
	return f, nil
}

// Key: ключ кэша: applications / search / status.
func (f Filter) Key() querycache.Key {
	return querycache.Key{CollectionApplications, f.Search, f.Status}
}

// IsDefault: фильтр не ограничивает список.
func (f Filter) IsDefault() bool {
	return f.Search == "" && (f.Status == "" || f.Status == StatusAll)
}

// SortByDateApplied возвращает новый срез, упорядоченный по date_applied
// по убыванию. Порядок равных дат сохраняется. Отклики с неразборчивой
// датой идут после всех корректных в исходном порядке.
func SortByDateApplied(apps []model.Application) []model.Application {
	type entry struct {
		app  model.Application
		date model.Date
		ok   bool
	}
	entries := make([]entry, len(apps))
	for i := range apps {
		d, err := apps[i].AppliedOn()
		entries[i] = entry{app: apps[i], date: d, ok: err == nil}
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.ok && b.ok:
			return b.date.Compare(a.date)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return 0
		}
	})

	sorted := make([]model.Application, len(entries))
	for i := range entries {
		sorted[i] = entries[i].app
	}
	return sorted
}

// SortedView мемоизирует сортировку по идентичности снимка списка:
// пока кэш возвращает тот же *ApplicationList, пересортировки нет.
// Возвращаемый срез общий, изменять его нельзя.
type SortedView struct {
	memo *lru.Cache[*model.ApplicationList, []model.Application]
}

// NewSortedView создаёт мемо на size снимков.
func NewSortedView(size int) *SortedView {
	memo, err := lru.New[*model.ApplicationList, []model.Application](size)
	if err != nil {
		// lru.New возвращает ошибку только для size <= 0
		memo, _ = lru.New[*model.ApplicationList, []model.Application](1)
	}
	return &SortedView{memo: memo}
}

// Sorted возвращает отсортированный список снимка.
func (v *SortedView) Sorted(list *model.ApplicationList) []model.Application {
	if list == nil {
		return []model.Application{}
	}
	if sorted, ok := v.memo.Get(list); ok {
		return sorted
	}
	sorted := SortByDateApplied(list.Items)
	v.memo.Add(list, sorted)
	return sorted
}

// ApplicationLister: чтение списка откликов из backend API.
type ApplicationLister interface {
	ListApplications(ctx context.Context, search, status string) ([]model.Application, error)
}

// ViewResult: данные для отрисовки таблицы откликов.
type ViewResult struct {
	Filter Filter
	Items  []model.Application
	// LoadError: загрузка не удалась; Items пустой.
	LoadError *LoadError
	// FilterError: фильтр отклонён до запроса; Items пустой.
	FilterError *ValidationError
}

// RejectedFilter: результат для фильтра, не прошедшего валидацию.
// Запрос к backend не выполняется.
func RejectedFilter(filter Filter, err *ValidationError) ViewResult {
	return ViewResult{Filter: filter, Items: []model.Application{}, FilterError: err}
}

// ApplicationView: загрузка списка откликов для представлений.
// В пределах одного представления (scope + viewID) действует правило
// «последний запрос побеждает»: смена фильтра отменяет незавершённую
// загрузку с другим фильтром, её результат отбрасывается.
type ApplicationView struct {
	api    ApplicationLister
	cache  *querycache.Cache
	sorted *SortedView
	gate   *viewGate
	now    func() time.Time
	logger *slog.Logger
}

// NewApplicationView создаёт ApplicationView.
func NewApplicationView(api ApplicationLister, cache *querycache.Cache, sorted *SortedView, logger *slog.Logger) *ApplicationView {
	return &ApplicationView{
		api:    api,
		cache:  cache,
		sorted: sorted,
		gate:   newViewGate(),
		now:    time.Now,
		logger: logger.With(slog.String("component", "application_view")),
	}
}

// List загружает отсортированный список по фильтру.
// Ошибка backend возвращается в ViewResult.LoadError, а не как error.
// error: только ErrSuperseded или отмена контекста вызывающего.
func (v *ApplicationView) List(ctx context.Context, scope, viewID string, filter Filter) (ViewResult, error) {
	slot := scope + "\x00" + viewID
	key := strings.Join(filter.Key(), "\x00")

	fetchCtx, t := v.gate.begin(ctx, slot, key)
	defer v.gate.end(t)

	list, err := querycache.Fetch(fetchCtx, v.cache, scope, filter.Key(),
		func(ctx context.Context) (*model.ApplicationList, error) {
			apps, err := v.api.ListApplications(ctx, filter.Search, filter.Status)
			if err != nil {
				return nil, err
			}
			return &model.ApplicationList{Items: apps, FetchedAt: v.now()}, nil
		})

	if !v.gate.current(t) {
		return ViewResult{}, ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			return ViewResult{}, ctx.Err()
		}
		v.logger.Warn("Ошибка загрузки списка откликов",
			slog.String("search", filter.Search),
			slog.String("status", filter.Status),
			slog.String("error", err.Error()),
		)
		return ViewResult{
			Filter:    filter,
			Items:     []model.Application{},
			LoadError: &LoadError{Message: apiclient.Message(err), Err: err},
		}, nil
	}

	return ViewResult{Filter: filter, Items: v.sorted.Sorted(list)}, nil
}

// viewGate реализует «последний запрос побеждает» для слотов представлений.
type viewGate struct {
	mu     sync.Mutex
	seq    uint64
	active map[string]*ticket
}

// ticket: одна загрузка в слоте.
type ticket struct {
	slot       string
	key        string
	seq        uint64
	cancel     context.CancelFunc
	superseded bool
}

func newViewGate() *viewGate {
	return &viewGate{active: make(map[string]*ticket)}
}

// begin регистрирует загрузку. Незавершённая загрузка слота с другим
// ключом отменяется; с тем же ключом продолжается (данные совпадут).
func (g *viewGate) begin(ctx context.Context, slot, key string) (context.Context, *ticket) {
	fetchCtx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	t := &ticket{slot: slot, key: key, seq: g.seq, cancel: cancel}
	if prev, ok := g.active[slot]; ok && prev.key != key {
		prev.superseded = true
		prev.cancel()
	}
	g.active[slot] = t
	return fetchCtx, t
}

// current: загрузка не вытеснена загрузкой с другим ключом.
func (g *viewGate) current(t *ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !t.superseded
}

// end освобождает слот, если загрузка была последней.
func (g *viewGate) end(t *ticket) {
	g.mu.Lock()
	if latest, ok := g.active[t.slot]; ok && latest.seq == t.seq {
		delete(g.active, t.slot)
	}
	g.mu.Unlock()
	t.cancel()
}

// IsSuperseded: загрузка вытеснена, отвечать не нужно.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
