package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/platform/config"
)

var (
	// ErrObjectNotFound is returned when the named object does not exist.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrBucketNotFound is returned when the configured bucket is missing.
	ErrBucketNotFound = errors.New("storage: bucket not found")

	errInvalidObject = errors.New("storage: object name is required")
)

// Object describes a stored object.
type Object struct {
	Name         string
	ContentType  string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the bucket-scoped contract every backend implements.
type ObjectStore interface {
	// EnsureBucket creates the bucket when it does not exist yet.
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) (Object, error)
	// Download returns a reader the caller must close.
	Download(ctx context.Context, name string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, name string) error
	PresignedURL(ctx context.Context, name string, ttl time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Copy(ctx context.Context, src, dst string) error
	HealthCheck(ctx context.Context) error
	Bucket() string
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case config.StorageMinIO:
		return NewMinIO(MinIOOptions{
			Endpoint:     fmt.Sprintf("%s:%d", cfg.MinIO.Endpoint, cfg.MinIO.Port),
			Bucket:       cfg.Bucket,
			Region:       cfg.MinIO.Region,
			UseSSL:       cfg.MinIO.UseSSL,
			AccessKey:    cfg.MinIO.AccessKey,
			SecretKey:    cfg.MinIO.SecretKey,
			SessionToken: cfg.MinIO.SessionToken,
			Logger:       logger,
		})
	case config.StorageS3:
		return NewMinIO(MinIOOptions{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    true,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Logger:    logger,
		})
	case config.StorageGCS:
		return NewGCS(ctx, GCSOptions{Bucket: cfg.Bucket, ProjectID: cfg.ProjectID, Logger: logger})
	case config.StorageMemory:
		return NewMemory(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
}

func normaliseName(name string) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", errInvalidObject
	}
	return name, nil
}
