package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/bootstrap"
	"finitefield.org/taskboard/internal/platform/observability"
	"finitefield.org/taskboard/internal/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace every todo with the sample todos",
	Long: `Delete all todos from the configured database backend and insert the
sample todos. Configuration is read the same way the API server reads it.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := observability.NewLogger("warn")
	if err != nil {
		return fmt.Errorf("failed to initialise logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.Named("taskctl")

	cfg, closeSecrets, err := bootstrap.LoadConfig(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	defer func() {
		_ = closeSecrets()
	}()

	registry, err := bootstrap.OpenRegistry(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open repositories: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	todos, err := services.NewTodoService(services.TodoServiceDeps{Repository: registry.Todos()})
	if err != nil {
		return err
	}
	return seedTodos(ctx, cmd, todos)
}

func seedTodos(ctx context.Context, cmd *cobra.Command, todos services.TodoService) error {
	created, err := todos.Reseed(ctx, services.SampleTodos())
	if err != nil {
		return fmt.Errorf("failed to seed todos: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, todo := range created {
		mark := " "
		if todo.Completed {
			mark = "x"
		}
		fmt.Fprintf(out, "[%s] %s (%s)\n", mark, todo.Title, todo.ID)
	}
	fmt.Fprintf(out, "Seeded %d todos\n", len(created))
	return nil
}
