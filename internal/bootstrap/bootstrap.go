// Package bootstrap assembles the API's backends from configuration. It is
// shared by the api server and the taskctl CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/platform/config"
	"finitefield.org/taskboard/internal/platform/database"
	"finitefield.org/taskboard/internal/platform/events"
	pfirestore "finitefield.org/taskboard/internal/platform/firestore"
	"finitefield.org/taskboard/internal/platform/secrets"
	"finitefield.org/taskboard/internal/repositories"
	firestorerepo "finitefield.org/taskboard/internal/repositories/firestore"
	"finitefield.org/taskboard/internal/repositories/memory"
	postgresrepo "finitefield.org/taskboard/internal/repositories/postgres"
	"finitefield.org/taskboard/internal/services"
)

// LoadConfig wires the Secret Manager fetcher and loads the API configuration.
// The returned close func releases the fetcher.
func LoadConfig(ctx context.Context, logger *zap.Logger, opts ...config.Option) (config.Config, func() error, error) {
	project, err := config.EnvironmentValue("API_SECRETS_PROJECT_ID", opts...)
	if err != nil {
		return config.Config{}, nil, err
	}
	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(project),
	)
	if err != nil {
		return config.Config{}, nil, err
	}

	loadOpts := append([]config.Option{config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve))}, opts...)
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		_ = fetcher.Close()
		return config.Config{}, nil, err
	}
	return cfg, fetcher.Close, nil
}

// OpenRegistry connects the repository backend selected by cfg.Database.Backend.
func OpenRegistry(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Registry, error) {
	switch cfg.Database.Backend {
	case config.DatabasePostgres:
		db, err := database.Open(ctx, cfg.Database, logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		registry, err := postgresrepo.NewRegistry(ctx, db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		return registry, nil
	case config.DatabaseFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		registry, err := firestorerepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close()
			return nil, err
		}
		return registry, nil
	case config.DatabaseMemory:
		logger.Warn("using in-memory repositories; data is lost on restart")
		return memory.NewRegistry(), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown database backend %q", cfg.Database.Backend)
	}
}

// NewTodoPublisher returns the Pub/Sub publisher for todo events, or nil when
// no events project is configured. The close func stops the topic and client.
func NewTodoPublisher(ctx context.Context, cfg config.EventsConfig, logger *zap.Logger) (services.TodoEventPublisher, func() error, error) {
	if cfg.ProjectID == "" {
		logger.Info("todo events disabled: no pubsub project configured")
		return nil, func() error { return nil }, nil
	}
	publisher, closeFn, err := events.Connect(ctx, cfg.ProjectID, cfg.TodoTopic)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("todo events enabled", zap.String("project", cfg.ProjectID), zap.String("topic", cfg.TodoTopic))
	return publisher, closeFn, nil
}
