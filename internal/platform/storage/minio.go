package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOOptions configures the S3-compatible backend used for both MinIO and AWS S3.
type MinIOOptions struct {
	Endpoint     string
	Bucket       string
	Region       string
	UseSSL       bool
	AccessKey    string
	SecretKey    string
	SessionToken string
	Logger       *zap.Logger
}

// MinIOStore talks to MinIO or S3 through minio-go.
type MinIOStore struct {
	client *minio.Client
	bucket string
	region string
	logger *zap.Logger
}

var _ ObjectStore = (*MinIOStore)(nil)

// NewMinIO constructs the store. Static keys are used when provided, otherwise
// the environment and instance-role credential chain applies.
func NewMinIO(opts MinIOOptions) (*MinIOStore, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("storage: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  resolveCredentials(opts),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}
	return &MinIOStore{client: client, bucket: bucket, region: opts.Region, logger: logger}, nil
}

func resolveCredentials(opts MinIOOptions) *credentials.Credentials {
	if opts.AccessKey != "" && opts.SecretKey != "" {
		return credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken)
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// Bucket returns the bucket name.
func (s *MinIOStore) Bucket() string { return s.bucket }

// EnsureBucket creates the bucket in the configured region when missing.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("storage: create bucket: %w", err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.bucket), zap.String("region", s.region))
	return nil
}

// Upload streams body into name.
func (s *MinIOStore) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) (Object, error) {
	name, err := normaliseName(name)
	if err != nil {
		return Object{}, err
	}
	info, err := s.client.PutObject(ctx, s.bucket, name, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, mapMinIOError("upload", err)
	}
	modified := info.LastModified
	if modified.IsZero() {
		modified = time.Now().UTC()
	}
	return Object{Name: name, ContentType: contentType, Size: info.Size, LastModified: modified}, nil
}

// Download stats the object first so a missing key fails before streaming starts.
func (s *MinIOStore) Download(ctx context.Context, name string) (io.ReadCloser, Object, error) {
	name, err := normaliseName(name)
	if err != nil {
		return nil, Object{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, Object{}, mapMinIOError("download", err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, Object{}, mapMinIOError("download", err)
	}
	return obj, objectFromInfo(info), nil
}

// Delete removes name. Missing objects are reported as ErrObjectNotFound.
func (s *MinIOStore) Delete(ctx context.Context, name string) error {
	name, err := normaliseName(name)
	if err != nil {
		return err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		return mapMinIOError("delete", err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return mapMinIOError("delete", err)
	}
	return nil
}

// PresignedURL returns a GET URL valid for ttl.
func (s *MinIOStore) PresignedURL(ctx context.Context, name string, ttl time.Duration) (string, error) {
	name, err := normaliseName(name)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, ttl, nil)
	if err != nil {
		return "", mapMinIOError("presign", err)
	}
	return u.String(), nil
}

// List returns every object under prefix.
func (s *MinIOStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, mapMinIOError("list", info.Err)
		}
		objects = append(objects, objectFromInfo(info))
	}
	return objects, nil
}

// Copy duplicates src to dst inside the bucket.
func (s *MinIOStore) Copy(ctx context.Context, src, dst string) error {
	src, err := normaliseName(src)
	if err != nil {
		return err
	}
	dst, err = normaliseName(dst)
	if err != nil {
		return err
	}
	_, err = s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: s.bucket, Object: src},
	)
	if err != nil {
		return mapMinIOError("copy", err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable and exists.
func (s *MinIOStore) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: health check: %w", err)
	}
	if !exists {
		return ErrBucketNotFound
	}
	return nil
}

func objectFromInfo(info minio.ObjectInfo) Object {
	return Object{
		Name:         info.Key,
		ContentType:  info.ContentType,
		Size:         info.Size,
		LastModified: info.LastModified,
	}
}

func mapMinIOError(op string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return fmt.Errorf("storage: %s: %w", op, ErrObjectNotFound)
	case "NoSuchBucket":
		return fmt.Errorf("storage: %s: %w", op, ErrBucketNotFound)
	}
	return fmt.Errorf("storage: %s: %w", op, err)
}
