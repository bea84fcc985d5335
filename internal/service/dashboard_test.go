package service

import (
	"context"
	"testing"
	"time"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/querycache"
)

func TestDashboard_Summary(t *testing.T) {
	api := &fakeAPI{
		stats: model.NewStats(4,
			map[model.Status]int{model.StatusApplied: 2, model.StatusOffer: 2},
			[]model.FollowUp{{ID: "a1", Company: "Acme", FollowUpDate: "2024-04-01"}},
		),
		resumes: []model.Resume{{ID: "r1"}, {ID: "r2"}},
	}
	cache := querycache.New(100, time.Minute, testLogger())
	lib := NewResumeLibrary(api, cache, testLogger())
	d := NewDashboard(api, cache, lib, testLogger())

	s, err := d.Summary(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalApplications != 4 || s.UpcomingCount != 1 || s.TotalResumes != 2 {
		t.Errorf("сводка = %+v", s)
	}
	if len(s.ByStatus) != len(model.Statuses) {
		t.Fatalf("статусов = %d", len(s.ByStatus))
	}
	for i, st := range model.Statuses {
		if s.ByStatus[i].Status != st {
			t.Errorf("порядок статусов: [%d] = %s, ожидался %s", i, s.ByStatus[i].Status, st)
		}
	}
	if s.ByStatus[1].Count != 0 || s.ByStatus[2].Count != 2 {
		t.Errorf("счётчики = %+v", s.ByStatus)
	}

	// Мутация откликов сбрасывает и сводку.
	cache.Invalidate("u", CollectionApplications)
	_, _ = d.Summary(context.Background(), "u")
	if n := api.callCount("stats"); n != 2 {
		t.Errorf("загрузок статистики = %d, ожидалось 2", n)
	}
	if n := api.callCount("list_resumes"); n != 1 {
		t.Errorf("загрузок резюме = %d, ожидалась 1", n)
	}
}

func TestDashboard_PanelErrorsIndependent(t *testing.T) {
	api := &fakeAPI{statsErr: backendDown, resumes: []model.Resume{{ID: "r1"}}}
	cache := querycache.New(100, time.Minute, testLogger())
	d := NewDashboard(api, cache, NewResumeLibrary(api, cache, testLogger()), testLogger())

	s, err := d.Summary(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	if s.StatsError == nil {
		t.Error("ожидалась ошибка панели статистики")
	}
	if s.ResumesError != nil || s.TotalResumes != 1 {
		t.Errorf("панель резюме должна загрузиться: %+v", s)
	}
}
