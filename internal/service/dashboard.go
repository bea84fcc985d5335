// dashboard.go: сводка для главной страницы.
package service

import (
	"context"
	"log/slog"

	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/querycache"
)

// statsKey: сводка лежит в коллекции applications и сбрасывается
// вместе со списком при любой мутации откликов.
var statsKey = querycache.Key{CollectionApplications, "stats"}

// StatsAPI: сводная статистика backend API.
type StatsAPI interface {
	ApplicationStats(ctx context.Context) (*model.Stats, error)
}

// StatusCount: количество откликов одного статуса.
type StatusCount struct {
	Status model.Status
	Count  int
}

// Summary: данные главной страницы. Ошибки панелей независимы.
type Summary struct {
	TotalApplications int
	ByStatus          []StatusCount
	UpcomingCount     int
	Upcoming          []model.FollowUp
	StatsError        *LoadError

	TotalResumes int
	Recent       []model.Resume
	ResumesError *LoadError
}

// recentResumes: число резюме в панели «последние».
const recentResumes = 5

// Dashboard собирает сводку.
type Dashboard struct {
	stats   StatsAPI
	cache   *querycache.Cache
	resumes *ResumeLibrary
	logger  *slog.Logger
}

// NewDashboard создаёт Dashboard.
func NewDashboard(stats StatsAPI, cache *querycache.Cache, resumes *ResumeLibrary, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		stats:   stats,
		cache:   cache,
		resumes: resumes,
		logger:  logger.With(slog.String("component", "dashboard")),
	}
}

// Summary загружает статистику и библиотеку резюме.
// error: только отмена контекста вызывающего.
func (d *Dashboard) Summary(ctx context.Context, scope string) (Summary, error) {
	var s Summary

	stats, err := querycache.Fetch(ctx, d.cache, scope, statsKey, d.stats.ApplicationStats)
	switch {
	case err == nil:
		s.TotalApplications = stats.TotalApplications
		s.UpcomingCount = stats.UpcomingCount()
		s.Upcoming = stats.Upcoming()
		s.ByStatus = make([]StatusCount, 0, len(model.Statuses))
		for _, st := range model.Statuses {
			s.ByStatus = append(s.ByStatus, StatusCount{Status: st, Count: stats.StatusCount(st)})
		}
	case ctx.Err() != nil:
		return Summary{}, ctx.Err()
	default:
		d.logger.Warn("Ошибка загрузки статистики", slog.String("error", err.Error()))
		s.StatsError = &LoadError{Message: apiclient.Message(err), Err: err}
	}

	resumes, err := d.resumes.Fetch(ctx, scope)
	switch {
	case err == nil:
		s.TotalResumes = resumes.Len()
		n := min(len(resumes.Items), recentResumes)
		s.Recent = resumes.Items[:n:n]
	case ctx.Err() != nil:
		return Summary{}, ctx.Err()
	default:
		d.logger.Warn("Ошибка загрузки библиотеки резюме", slog.String("error", err.Error()))
		s.ResumesError = &LoadError{Message: apiclient.Message(err), Err: err}
	}

	return s, nil
}
