// Пакет server: HTTP-сервер веб-фронтенда Resumitory с graceful shutdown.
// Без TLS: TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dhanushranga1/Resumitory/internal/api/handlers"
	"github.com/Dhanushranga1/Resumitory/internal/api/middleware"
	"github.com/Dhanushranga1/Resumitory/internal/config"
	uihandlers "github.com/Dhanushranga1/Resumitory/internal/ui/handlers"
	"github.com/Dhanushranga1/Resumitory/internal/ui/i18n"
	uimiddleware "github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
	"github.com/Dhanushranga1/Resumitory/internal/ui/static"
)

// UIComponents: обработчики и middleware веб-интерфейса.
type UIComponents struct {
	AuthHandler         *uihandlers.AuthHandler
	AuthMiddleware      *uimiddleware.UIAuth
	DashboardHandler    *uihandlers.DashboardHandler
	ApplicationsHandler *uihandlers.ApplicationsHandler
	ResumesHandler      *uihandlers.ResumesHandler
	EventsHandler       *uihandlers.EventsHandler
}

// Server: HTTP-сервер веб-фронтенда.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, health *handlers.HealthHandler, ui *UIComponents) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(logger, health, ui),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout не задаётся: поток /events живёт долго
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты: служебные endpoints, публичные страницы
// входа и защищённые сессией страницы и фрагменты.
func NewRouter(logger *slog.Logger, health *handlers.HealthHandler, ui *UIComponents) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware())

		// Публичные маршруты
		r.Get("/", http.RedirectHandler("/dashboard", http.StatusFound).ServeHTTP)
		r.Get("/login", ui.AuthHandler.HandleLoginPage)
		r.Get("/auth/start", ui.AuthHandler.HandleStart)
		r.Get("/signup", ui.AuthHandler.HandleSignup)
		r.Get("/auth/callback", ui.AuthHandler.HandleCallback)
		r.Post("/logout", ui.AuthHandler.HandleLogout)
		r.Post("/set-language", uihandlers.HandleSetLanguage)

		// Защищённые маршруты
		r.Group(func(r chi.Router) {
			r.Use(ui.AuthMiddleware.Middleware())

			r.Get("/dashboard", ui.DashboardHandler.HandleDashboard)
			r.Get("/applications", ui.ApplicationsHandler.HandlePage)
			r.Get("/resumes", ui.ResumesHandler.HandlePage)
			r.Get("/events", ui.EventsHandler.HandleEvents)

			r.Route("/partials", func(r chi.Router) {
				r.Route("/applications", func(r chi.Router) {
					r.Get("/", ui.ApplicationsHandler.HandleTable)
					r.Get("/quick-add", ui.ApplicationsHandler.HandleQuickAdd)
					r.Get("/new", ui.ApplicationsHandler.HandleNew)
					r.Get("/{id}/edit", ui.ApplicationsHandler.HandleEdit)
					r.Patch("/{id}/status", ui.ApplicationsHandler.HandleSetStatus)
					r.Delete("/{id}/status/error", ui.ApplicationsHandler.HandleDismissStatusError)
					r.Get("/{id}/delete", ui.ApplicationsHandler.HandleConfirmDelete)
					r.Delete("/{id}", ui.ApplicationsHandler.HandleDelete)
				})
				r.Route("/forms/{token}", func(r chi.Router) {
					r.Post("/quick-add", ui.ApplicationsHandler.HandleSubmitQuickAdd)
					r.Post("/full", ui.ApplicationsHandler.HandleSubmitFull)
					r.Delete("/", ui.ApplicationsHandler.HandleCancelForm)
				})
				r.Route("/resumes", func(r chi.Router) {
					r.Get("/", ui.ResumesHandler.HandleGrid)
					r.Post("/", ui.ResumesHandler.HandleUpload)
					r.Get("/{id}/edit", ui.ResumesHandler.HandleEdit)
					r.Patch("/{id}", ui.ResumesHandler.HandleUpdate)
					r.Post("/{id}/clone", ui.ResumesHandler.HandleClone)
					r.Get("/{id}/delete", ui.ResumesHandler.HandleConfirmDelete)
					r.Delete("/{id}", ui.ResumesHandler.HandleDelete)
				})
			})
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
