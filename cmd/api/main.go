package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/bootstrap"
	"finitefield.org/taskboard/internal/handlers"
	"finitefield.org/taskboard/internal/platform/auth"
	"finitefield.org/taskboard/internal/platform/config"
	"finitefield.org/taskboard/internal/platform/observability"
	"finitefield.org/taskboard/internal/platform/storage"
	"finitefield.org/taskboard/internal/services"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	startedAt := time.Now().UTC()

	level, err := config.EnvironmentValue("API_LOG_LEVEL")
	if err != nil {
		return err
	}
	baseLogger, err := observability.NewLogger(level)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, closeSecrets, err := bootstrap.LoadConfig(ctx, logger)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer closeQuietly(logger, "secret fetcher", closeSecrets)

	registry, err := bootstrap.OpenRegistry(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open repositories: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	store, err := storage.New(ctx, cfg.Storage, logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closeQuietly(logger, "object store", closer.Close)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		// The API still serves todos without images; readiness reports the failure.
		logger.Warn("ensure bucket failed", zap.String("bucket", store.Bucket()), zap.Error(err))
	}

	publisher, closeEvents, err := bootstrap.NewTodoPublisher(ctx, cfg.Events, logger.Named("events"))
	if err != nil {
		return fmt.Errorf("connect todo events: %w", err)
	}
	defer closeQuietly(logger, "todo events", closeEvents)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initialise metrics: %w", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("initialise token manager: %w", err)
	}

	todoService, err := services.NewTodoService(services.TodoServiceDeps{
		Repository: registry.Todos(),
		Events:     publisher,
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("initialise todo service: %w", err)
	}
	userService, err := services.NewUserService(services.UserServiceDeps{
		Repository: registry.Users(),
		Tokens:     tokens,
	})
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}
	imageService, err := services.NewImageService(services.ImageServiceDeps{
		Store:       store,
		Metrics:     metrics,
		MaxFileSize: cfg.Storage.MaxFileSize,
		PresignTTL:  cfg.Storage.PresignTTL,
	})
	if err != nil {
		return fmt.Errorf("initialise image service: %w", err)
	}
	systemService := services.NewSystemService(services.SystemServiceDeps{
		Build: services.BuildInfo{
			Name:        "taskboard-api",
			Version:     version,
			Environment: cfg.Environment,
			StartedAt:   startedAt,
		},
		Checks: map[string]services.HealthChecker{
			"database": services.HealthCheckerFunc(registry.Ping),
			"storage":  services.HealthCheckerFunc(store.HealthCheck),
		},
		CheckTimeout: 3 * time.Second,
	})

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithAPIMiddlewares(tokens.OptionalBearer()),
		handlers.WithSystemHandlers(handlers.NewSystemHandlers(systemService)),
		handlers.WithTodoRoutes(handlers.NewTodoHandlers(todoService).Routes),
		handlers.WithUserRoutes(handlers.NewUserHandlers(userService, tokens).Routes),
		handlers.WithImageRoutes(handlers.NewImageHandlers(imageService).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("taskboard api listening",
			zap.String("database", cfg.Database.Backend),
			zap.String("storage", cfg.Storage.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func closeQuietly(logger *zap.Logger, name string, closeFn func() error) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.Warn(name+" close error", zap.Error(err))
	}
}
