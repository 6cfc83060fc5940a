package main

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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nextup/arena-director/config"
	"github.com/nextup/arena-director/handlers"
	"github.com/nextup/arena-director/ledger"
	"github.com/nextup/arena-director/metrics"
	"github.com/nextup/arena-director/overlay"
	"github.com/nextup/arena-director/provider"
	api "github.com/nextup/arena-director/routes"
	"github.com/nextup/arena-director/scheduler"
	"github.com/nextup/arena-director/services"
	"github.com/nextup/arena-director/status"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Локальные настройки оператора поверх окружения
	settings := config.LoadSettings(cfg.SettingsPath, config.DefaultSettings(cfg))
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Duration("tournament_poll_interval", settings.TournamentPollInterval()),
		slog.Duration("assignment_poll_interval", settings.AssignmentPollInterval()),
	)

	// Метрики
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Клиенты внешних сервисов
	providerClient := provider.NewClient(cfg.ProviderBaseURL, settings.ProviderUserID, settings.ProviderAPIKey, nil)
	ledgerClient := ledger.NewClient(cfg.LedgerBaseURL, nil)
	if err := providerClient.CheckCredentials(); err != nil {
		logger.Warn("provider credentials are not configured", slog.Any("error", err))
	}

	// Супервизор соединения с оверлеем
	supervisor := overlay.NewSupervisor(logger, m, overlay.Config{})
	supervisor.OnStateChange(func(state overlay.State) {
		logger.Info("overlay state changed", slog.String("state", string(state)))
	})

	// Планировщик опроса двух лент
	sched := scheduler.New(providerClient, ledgerClient, logger, m, scheduler.Config{
		TournamentPollInterval: settings.TournamentPollInterval(),
		AssignmentPollInterval: settings.AssignmentPollInterval(),
		DefaultArenas:          settings.DefaultArenas,
	})
	defer sched.Stop()

	// Сервисы и обработчики
	directorService := services.NewDirectorService(providerClient, ledgerClient, supervisor, sched, m, logger)
	checker := status.NewChecker(providerClient, ledgerClient, supervisor, settings.OverlayURL != "")

	directorHandler := handlers.NewDirectorHandler(directorService, logger)
	overlayHandler := handlers.NewOverlayHandler(supervisor, settings.OverlayURL, settings.OverlayPassword, logger)
	statusHandler := handlers.NewStatusHandler(checker, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupDirectorRoutes(router, directorHandler, overlayHandler, statusHandler, registry)
	logger.Info("routes configured")

	// Фоновое подключение к оверлею, если он сконфигурирован. Неудача не
	// фатальна: супервизор продолжит переподключаться сам.
	if settings.OverlayURL != "" {
		go func() {
			if err := supervisor.Connect(settings.OverlayURL, settings.OverlayPassword, false); err != nil {
				logger.Warn("initial overlay connection failed", slog.Any("error", err))
			}
		}()
	}

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}

	supervisor.Disconnect()
	logger.Info("application exited")
}
