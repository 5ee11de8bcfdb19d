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

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/config"
	"github.com/Dosada05/tournament-engine/db"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/repositories"
	api "github.com/Dosada05/tournament-engine/routes"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/Dosada05/tournament-engine/storage"
	"github.com/Dosada05/tournament-engine/telemetry"
	"github.com/go-chi/chi/v5"
)

const serviceName = "tournament-engine"

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("driver", cfg.DatabaseDriver))

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Setup(rootCtx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Архив итогов турниров в Cloudflare R2, если настроен
	var archiver services.Archiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(rootCtx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewSnapshotArchiver(uploader)
		logger.Info("Cloudflare R2 archive enabled", slog.String("bucket", cfg.R2BucketName))
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(rootCtx)

	var notifier services.Notifier = services.NewLogNotifier(logger)
	if cfg.EmailEnabled() {
		notifier = services.NewEmailNotifier(services.SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, notifier, logger)
		logger.Info("decision emails enabled", slog.String("smtp_host", cfg.SMTPHost))
	}

	// Инициализация сервисов
	store := repositories.NewSQLStore(dbConn)
	registry := services.NewRegistry(store, logger)
	dispatcher := services.NewDecisionDispatcher(store, notifier, logger)

	tournamentService := services.NewTournamentService(registry, wsHub, archiver, services.TournamentDefaults{
		AllowResultCorrection:      cfg.DefaultAllowResultCorrection,
		RequirePaymentConfirmation: cfg.DefaultRequirePaymentConfirmation,
	}, logger)
	registrationService := services.NewRegistrationService(registry, dispatcher, wsHub, logger)
	matchService := services.NewMatchService(registry, tournamentService, wsHub, logger)
	bracketService := services.NewBracketService(registry, wsHub, logger)
	standingsService := services.NewStandingsService(registry, logger)
	dashboardService := services.NewDashboardService(store)
	authService := services.NewAuthService(cfg.OrganizerLogin, cfg.OrganizerPasswordHash, []byte(cfg.JWTSecretKey), cfg.TokenTTL)
	if !cfg.LoginEnabled() {
		logger.Warn("organizer login is disabled, ORGANIZER_LOGIN is not set")
	}
	logger.Info("services initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, []byte(cfg.JWTSecretKey), cfg.CORSAllowedOrigins, api.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Tournament:  handlers.NewTournamentHandler(tournamentService, standingsService, bracketService, matchService),
		Participant: handlers.NewParticipantHandler(registrationService),
		Match:       handlers.NewMatchHandler(matchService, bracketService),
		Dashboard:   handlers.NewDashboardHandler(dashboardService),
		Health:      handlers.NewHealthHandler(dbConn),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger),
	})

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// WriteTimeout не задан: он обрывал бы WebSocket-соединения.
		IdleTimeout: 120 * time.Second,
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", cfg.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	// Hub закрывает клиентов, затем дожидаемся уведомлений и архивации.
	stop()
	<-wsHub.Done()
	dispatcher.Wait()
	tournamentService.Wait()

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Error("failed to flush traces", slog.Any("error", err))
	}

	logger.Info("application exited")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
