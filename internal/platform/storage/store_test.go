package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"finitefield.org/taskboard/internal/platform/config"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory("images")
	store.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	obj, err := store.Upload(ctx, "/uploads/a.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.Name != "uploads/a.png" || obj.Size != 9 {
		t.Fatalf("unexpected object %+v", obj)
	}

	rc, meta, err := store.Download(ctx, "uploads/a.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "png-bytes" || meta.ContentType != "image/png" {
		t.Fatalf("unexpected download %q %+v", data, meta)
	}

	if err := store.Copy(ctx, "uploads/a.png", "archive/a.png"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	listed, err := store.List(ctx, "uploads/")
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one upload listed, got %v %v", listed, err)
	}

	signed, err := store.PresignedURL(ctx, "uploads/a.png", time.Hour)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(signed, "memory://images/uploads/a.png?expires=2024-03-01T13") {
		t.Fatalf("unexpected presigned url %s", signed)
	}

	if err := store.Delete(ctx, "uploads/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "uploads/a.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, _, err := store.Download(ctx, "uploads/a.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreRejectsEmptyName(t *testing.T) {
	store := NewMemory("images")
	if _, err := store.Upload(context.Background(), " / ", strings.NewReader(""), 0, "image/png"); !errors.Is(err, errInvalidObject) {
		t.Fatalf("expected invalid object error, got %v", err)
	}
}

func TestMapMinIOError(t *testing.T) {
	err := mapMinIOError("download", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	err = mapMinIOError("list", minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404})
	if !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}
	if err := mapMinIOError("upload", errors.New("boom")); errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("unexpected not found mapping for %v", err)
	}
}

func TestResolveCredentialsPrefersStaticKeys(t *testing.T) {
	creds := resolveCredentials(MinIOOptions{AccessKey: "ak", SecretKey: "sk", SessionToken: "tok"})
	value, err := creds.Get()
	if err != nil {
		t.Fatalf("get credentials: %v", err)
	}
	if value.AccessKeyID != "ak" || value.SecretAccessKey != "sk" || value.SessionToken != "tok" {
		t.Fatalf("unexpected credentials %+v", value)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Backend: config.StorageMemory, Bucket: "b"}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok || store.Bucket() != "b" {
		t.Fatalf("expected memory store for bucket b, got %T", store)
	}

	minioStore, err := New(context.Background(), config.StorageConfig{
		Backend: config.StorageMinIO,
		Bucket:  "images",
		MinIO:   config.MinIOConfig{Endpoint: "localhost", Port: 9000, AccessKey: "a", SecretKey: "s"},
	}, nil)
	if err != nil {
		t.Fatalf("new minio: %v", err)
	}
	if _, ok := minioStore.(*MinIOStore); !ok {
		t.Fatalf("expected minio store, got %T", minioStore)
	}

	if _, err := New(context.Background(), config.StorageConfig{Backend: "ftp", Bucket: "b"}, nil); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
}
