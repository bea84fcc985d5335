package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dhanushranga1/Resumitory/internal/service"
	uimiddleware "github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
	"github.com/Dhanushranga1/Resumitory/internal/ui/pages"
)

// DashboardHandler: главная страница со сводкой.
type DashboardHandler struct {
	dashboard *service.Dashboard
	pages     *pages.Renderer
	logger    *slog.Logger
}

// NewDashboardHandler создаёт DashboardHandler.
func NewDashboardHandler(dashboard *service.Dashboard, renderer *pages.Renderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		pages:     renderer,
		logger:    logger.With(slog.String("component", "ui.dashboard")),
	}
}

// HandleDashboard обрабатывает GET /dashboard.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context(), uimiddleware.Scope(r.Context()))
	if err != nil {
		// Клиент отключился до завершения загрузки
		h.logger.Debug("Сводка не собрана", slog.String("error", err.Error()))
		return
	}
	if summary.StatsError != nil && backendRejected(w, r, summary.StatsError) {
		return
	}
	if summary.ResumesError != nil && backendRejected(w, r, summary.ResumesError) {
		return
	}
	render(w, r, h.logger, h.pages.Dashboard(summary), http.StatusOK)
}
