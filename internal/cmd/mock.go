package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/mockdata"
	"finitefield.org/taskboard/internal/platform/observability"
)

const defaultMockFile = "mock/data/db.json"

var (
	mockUsers    int
	mockPosts    int
	mockComments int
	mockOut      string
	mockSeed     uint64

	mockServeFile string
	mockServeAddr string
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Generate and serve the mock dataset",
}

var mockGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a fake users/posts/comments database",
	Long: `Generate fake users, posts and comments and write them as db.json.
A non-zero --seed produces the same file on every run.`,
	Args: cobra.NoArgs,
	RunE: runMockGenerate,
}

var mockServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a db.json file over a read-only JSON API",
	Long: `Serve the collections of a db.json file:

  GET /{collection}       list with field filters, q, _sort, _order, _page, _limit
  GET /{collection}/{id}  single record`,
	Args: cobra.NoArgs,
	RunE: runMockServe,
}

func init() {
	mockGenerateCmd.Flags().IntVar(&mockUsers, "users", mockdata.DefaultCounts.Users, "Number of users")
	mockGenerateCmd.Flags().IntVar(&mockPosts, "posts", mockdata.DefaultCounts.Posts, "Number of posts")
	mockGenerateCmd.Flags().IntVar(&mockComments, "comments", mockdata.DefaultCounts.Comments, "Number of comments")
	mockGenerateCmd.Flags().StringVarP(&mockOut, "out", "o", defaultMockFile, "Output file")
	mockGenerateCmd.Flags().Uint64Var(&mockSeed, "seed", 0, "Random seed (0 picks one)")

	mockServeCmd.Flags().StringVarP(&mockServeFile, "file", "f", defaultMockFile, "db.json to serve")
	mockServeCmd.Flags().StringVar(&mockServeAddr, "addr", ":3002", "Listen address")

	mockCmd.AddCommand(mockGenerateCmd, mockServeCmd)
	rootCmd.AddCommand(mockCmd)
}

func runMockGenerate(cmd *cobra.Command, _ []string) error {
	counts := mockdata.Counts{Users: mockUsers, Posts: mockPosts, Comments: mockComments}
	db, err := mockdata.NewGenerator(mockSeed, time.Now()).Generate(counts)
	if err != nil {
		return err
	}
	if err := mockdata.Save(mockOut, db); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d users, %d posts, %d comments to %s\n",
		len(db.Users), len(db.Posts), len(db.Comments), mockOut)
	return nil
}

func runMockServe(cmd *cobra.Command, _ []string) error {
	db, err := mockdata.Load(mockServeFile)
	if err != nil {
		return err
	}
	srv, err := mockdata.NewServer(db)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger("info")
	if err != nil {
		return fmt.Errorf("failed to initialise logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.Named("mock")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              mockServeAddr,
		Handler:           srv.Handler(logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock server listening", zap.String("addr", mockServeAddr), zap.String("file", mockServeFile))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
