package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSOptions configures the Cloud Storage backend.
type GCSOptions struct {
	Bucket    string
	ProjectID string
	Logger    *zap.Logger
	Client    []option.ClientOption
}

// GCSStore stores images in a Cloud Storage bucket. Signed URLs use V4 signing
// with the credentials detected by the client.
type GCSStore struct {
	client    *storage.Client
	bucket    *storage.BucketHandle
	name      string
	projectID string
	logger    *zap.Logger
}

var _ ObjectStore = (*GCSStore)(nil)

// NewGCS dials Cloud Storage.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	name := strings.TrimSpace(opts.Bucket)
	if name == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx, opts.Client...)
	if err != nil {
		return nil, fmt.Errorf("storage: create gcs client: %w", err)
	}
	return &GCSStore{
		client:    client,
		bucket:    client.Bucket(name),
		name:      name,
		projectID: strings.TrimSpace(opts.ProjectID),
		logger:    logger,
	}, nil
}

// Bucket returns the bucket name.
func (s *GCSStore) Bucket() string { return s.name }

// Close releases the client.
func (s *GCSStore) Close() error { return s.client.Close() }

// EnsureBucket creates the bucket when the project is known.
func (s *GCSStore) EnsureBucket(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("storage: check bucket: %w", err)
	}
	if s.projectID == "" {
		return ErrBucketNotFound
	}
	if err := s.bucket.Create(ctx, s.projectID, nil); err != nil {
		return fmt.Errorf("storage: create bucket: %w", err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.name))
	return nil
}

// Upload writes body to name.
func (s *GCSStore) Upload(ctx context.Context, name string, body io.Reader, _ int64, contentType string) (Object, error) {
	name, err := normaliseName(name)
	if err != nil {
		return Object{}, err
	}
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("storage: upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("storage: upload: %w", err)
	}
	attrs := w.Attrs()
	return Object{Name: name, ContentType: attrs.ContentType, Size: attrs.Size, LastModified: attrs.Updated}, nil
}

// Download opens a reader on name.
func (s *GCSStore) Download(ctx context.Context, name string) (io.ReadCloser, Object, error) {
	name, err := normaliseName(name)
	if err != nil {
		return nil, Object{}, err
	}
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, Object{}, mapGCSError("download", err)
	}
	return r, Object{
		Name:         name,
		ContentType:  r.Attrs.ContentType,
		Size:         r.Attrs.Size,
		LastModified: r.Attrs.LastModified,
	}, nil
}

// Delete removes name.
func (s *GCSStore) Delete(ctx context.Context, name string) error {
	name, err := normaliseName(name)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(name).Delete(ctx); err != nil {
		return mapGCSError("delete", err)
	}
	return nil
}

// PresignedURL signs a GET URL valid for ttl.
func (s *GCSStore) PresignedURL(_ context.Context, name string, ttl time.Duration) (string, error) {
	name, err := normaliseName(name)
	if err != nil {
		return "", err
	}
	signed, err := s.bucket.SignedURL(name, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("storage: presign: %w", err)
	}
	return signed, nil
}

// List returns the objects under prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var objects []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapGCSError("list", err)
		}
		objects = append(objects, Object{
			Name:         attrs.Name,
			ContentType:  attrs.ContentType,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}
	return objects, nil
}

// Copy duplicates src to dst inside the bucket.
func (s *GCSStore) Copy(ctx context.Context, src, dst string) error {
	src, err := normaliseName(src)
	if err != nil {
		return err
	}
	dst, err = normaliseName(dst)
	if err != nil {
		return err
	}
	if _, err := s.bucket.Object(dst).CopierFrom(s.bucket.Object(src)).Run(ctx); err != nil {
		return mapGCSError("copy", err)
	}
	return nil
}

// HealthCheck reads the bucket attributes.
func (s *GCSStore) HealthCheck(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return mapGCSError("health check", err)
	}
	return nil
}

func mapGCSError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return fmt.Errorf("storage: %s: %w", op, ErrObjectNotFound)
	case errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("storage: %s: %w", op, ErrBucketNotFound)
	}
	return fmt.Errorf("storage: %s: %w", op, err)
}
