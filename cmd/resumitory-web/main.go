// Точка входа веб-фронтенда Resumitory: трекера откликов на вакансии.
// Загружает конфигурацию, создаёт клиент backend API, кэш запросов,
// сервисный слой и OIDC-аутентификацию через Keycloak,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/Dhanushranga1/Resumitory/internal/api/handlers"
	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
	"github.com/Dhanushranga1/Resumitory/internal/config"
	"github.com/Dhanushranga1/Resumitory/internal/querycache"
	"github.com/Dhanushranga1/Resumitory/internal/server"
	"github.com/Dhanushranga1/Resumitory/internal/service"
	"github.com/Dhanushranga1/Resumitory/internal/ui/auth"
	uihandlers "github.com/Dhanushranga1/Resumitory/internal/ui/handlers"
	"github.com/Dhanushranga1/Resumitory/internal/ui/i18n"
	uimiddleware "github.com/Dhanushranga1/Resumitory/internal/ui/middleware"
	"github.com/Dhanushranga1/Resumitory/internal/ui/pages"
)

// sortedViewSize: число снимков списка, для которых хранится сортировка.
const sortedViewSize = 256

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Resumitory Web запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("RW_DEPHEALTH_GROUP") == "" {
		logger.Warn("RW_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Клиент backend API (токен берётся из сессии запроса)
	var contract *apiclient.Contract
	if cfg.APIContractCheck {
		contract, err = apiclient.NewContract(cfg.APIBaseURL, logger)
		if err != nil {
			logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Проверка ответов API по контракту включена")
	}
	apiClient, err := apiclient.New(apiclient.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		CACertPath: cfg.APICACertPath,
		Contract:   contract,
	}, uimiddleware.AccessToken, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент API создан", slog.String("base_url", apiClient.BaseURL()))

	// 4. Кэш запросов и сервисы
	cache := querycache.New(cfg.CacheSize, cfg.CacheTTL, logger)
	coordinator := service.NewApplicationCoordinator(apiClient, cache, logger)
	forms := service.NewFormController(coordinator, cfg.CacheSize, cfg.FormTTL, logger)
	view := service.NewApplicationView(apiClient, cache, service.NewSortedView(sortedViewSize), logger)
	library := service.NewResumeLibrary(apiClient, cache, logger)
	dashboard := service.NewDashboard(apiClient, cache, library, logger)

	// 5. Аутентификация: сессии, OIDC, проверка JWT
	sessionMgr, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SecureCookies())
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("RW_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	keycloakHTTP := &http.Client{Timeout: cfg.OIDCClientTimeout}
	oidcClient := auth.NewOIDCClient(auth.OIDCConfig{
		KeycloakURL:        cfg.KeycloakURL,
		BrowserKeycloakURL: cfg.KeycloakBrowserURL,
		Realm:              cfg.KeycloakRealm,
		ClientID:           cfg.OIDCClientID,
		HTTPClient:         keycloakHTTP,
	})

	verifier, err := auth.NewTokenVerifier(ctx, auth.VerifierConfig{
		JWKSURL:         cfg.JWTJWKSURL,
		Issuer:          cfg.JWTIssuer,
		HTTPClient:      keycloakHTTP,
		RefreshInterval: cfg.JWKSRefreshInterval,
		Leeway:          cfg.JWTLeeway,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT verifier инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 6. Завершение сессии сбрасывает кэш и открытые формы пользователя
	notifier := auth.NewNotifier(logger)
	sessionCleanup := notifier.Subscribe(func(ev auth.SessionEvent) {
		if ev.Kind != auth.SessionEnded || ev.Subject == "" {
			return
		}
		cache.InvalidateScope(ev.Subject)
		forms.DiscardScope(ev.Subject)
		coordinator.ForgetScope(ev.Subject)
		library.ForgetScope(ev.Subject)
	})
	defer sessionCleanup.Unsubscribe()

	// 7. Шаблоны и переводы
	bundle := i18n.NewBundle(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	renderer, err := pages.NewRenderer(bundle)
	if err != nil {
		logger.Error("Ошибка разбора шаблонов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ui := &server.UIComponents{
		AuthHandler:         uihandlers.NewAuthHandler(oidcClient, sessionMgr, verifier, notifier, renderer, logger),
		AuthMiddleware:      uimiddleware.NewUIAuth(sessionMgr, oidcClient, notifier, logger),
		DashboardHandler:    uihandlers.NewDashboardHandler(dashboard, renderer, logger),
		ApplicationsHandler: uihandlers.NewApplicationsHandler(view, coordinator, forms, apiClient, library, renderer, logger),
		ResumesHandler:      uihandlers.NewResumesHandler(library, renderer, logger),
		EventsHandler:       uihandlers.NewEventsHandler(cache, notifier, cfg.SSEKeepalive, logger),
	}

	// 8. Readiness checkers (backend API + Keycloak)
	healthHandler := handlers.NewHealthHandler(
		handlers.NewBackendReadinessChecker(cfg.APIBaseURL, apiClient.HTTPClient()),
		handlers.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, keycloakHTTP),
	)

	// 9. topologymetrics: мониторинг зависимостей (backend API + Keycloak)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:       "resumitory-web",
		Group:           cfg.DephealthGroup,
		APIBaseURL:      cfg.APIBaseURL,
		KeycloakJWKSURL: cfg.JWTJWKSURL,
		CheckInterval:   cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. HTTP-сервер
	srv := server.New(cfg, logger, healthHandler, ui)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	cancel()

	logger.Info("Resumitory Web остановлен")
}
