package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"finitefield.org/taskboard/internal/admin/apiclient"
	"finitefield.org/taskboard/internal/admin/httpserver"
	"finitefield.org/taskboard/internal/admin/httpserver/middleware"
	"finitefield.org/taskboard/internal/admin/session"
	"finitefield.org/taskboard/internal/mockdata"
	"finitefield.org/taskboard/internal/platform/auth"
	"finitefield.org/taskboard/internal/platform/config"
	"finitefield.org/taskboard/internal/platform/observability"
)

// apiTokenIssuer must match the API's API_AUTH_ISSUER default.
const apiTokenIssuer = "taskboard-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAdmin(ctx)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("admin")

	sessions, err := session.NewManager(session.Config{
		HashKey:      []byte(cfg.Session.HashKey),
		BlockKey:     []byte(cfg.Session.BlockKey),
		CookiePath:   cfg.BasePath,
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("initialise session manager: %w", err)
	}

	authenticator, idTokenLogin, err := buildAuthenticator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	api, err := apiclient.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout})
	if err != nil {
		return fmt.Errorf("initialise api client: %w", err)
	}

	mockDB, err := loadMockData(cfg.MockDataFile, logger)
	if err != nil {
		return err
	}

	srv := httpserver.New(httpserver.Config{
		Address:          cfg.Address,
		BasePath:         cfg.BasePath,
		Environment:      cfg.Environment,
		Logger:           logger,
		Authenticator:    authenticator,
		Sessions:         sessions,
		Accounts:         api,
		Todos:            api,
		IDTokenLogin:     idTokenLogin,
		MockData:         mockDB,
		MockSource:       cfg.MockDataFile,
		PageSize:         cfg.PageSize,
		ExplicitTodos:    cfg.ExplicitTodos,
		CSRFCookiePath:   cfg.BasePath,
		CSRFCookieSecure: cfg.Session.CookieSecure,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin server listening",
			zap.String("addr", cfg.Address),
			zap.String("basePath", cfg.BasePath),
			zap.String("api", cfg.APIBaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildAuthenticator prefers Firebase ID tokens when a project is configured
// and otherwise verifies the API's own session tokens.
func buildAuthenticator(ctx context.Context, cfg config.AdminConfig, logger *zap.Logger) (middleware.Authenticator, bool, error) {
	if cfg.Firebase.ProjectID == "" {
		tokens, err := auth.NewTokenManager(cfg.TokenSecret, apiTokenIssuer, time.Hour)
		if err != nil {
			return nil, false, fmt.Errorf("initialise token authenticator: %w", err)
		}
		logger.Info("api token authenticator enabled")
		return middleware.NewTokenAuthenticator(tokens), false, nil
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, false, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	logger.Info("firebase authenticator enabled", zap.String("project", cfg.Firebase.ProjectID))
	return middleware.NewFirebaseAuthenticator(client), true, nil
}

// loadMockData returns nil when the file does not exist so the mock pages stay
// unmounted.
func loadMockData(path string, logger *zap.Logger) (*mockdata.Database, error) {
	if path == "" {
		return nil, nil
	}
	db, err := mockdata.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("mock data disabled", zap.String("file", path))
			return nil, nil
		}
		return nil, err
	}
	return &db, nil
}
