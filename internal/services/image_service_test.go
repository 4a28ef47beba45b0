package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"finitefield.org/taskboard/internal/platform/storage"
)

func newTestImageService(t *testing.T) (ImageService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemory("images")
	svc, err := NewImageService(ImageServiceDeps{
		Store:       store,
		MaxFileSize: 16,
		Clock:       func() time.Time { return time.UnixMilli(1700000000000) },
	})
	if err != nil {
		t.Fatalf("NewImageService: %v", err)
	}
	return svc, store
}

func TestImageServiceUploadDefaultsObjectName(t *testing.T) {
	svc, _ := newTestImageService(t)
	img, err := svc.Upload(context.Background(), UploadImageCommand{
		Filename:    "my photo (1).png",
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("data"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if img.ObjectName != "uploads/1700000000000-my_photo__1_.png" {
		t.Fatalf("unexpected object name %q", img.ObjectName)
	}
	if !strings.HasPrefix(img.URL, "memory://images/") || img.Size != 4 {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestImageServiceUploadValidation(t *testing.T) {
	svc, _ := newTestImageService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadImageCommand{Filename: "a.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("x")})
	if !errors.Is(err, ErrImageUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
	_, err = svc.Upload(ctx, UploadImageCommand{Filename: "a.png", ContentType: "image/png", Size: 17, Body: strings.NewReader("x")})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	_, err = svc.Upload(ctx, UploadImageCommand{ContentType: "image/png"})
	if !errors.Is(err, ErrImageInvalidInput) {
		t.Fatalf("expected invalid input for missing file, got %v", err)
	}
	_, err = svc.Upload(ctx, UploadImageCommand{Path: "../etc/passwd", ContentType: "image/png", Size: 1, Body: strings.NewReader("x")})
	if !errors.Is(err, ErrImageInvalidInput) {
		t.Fatalf("expected invalid input for traversal, got %v", err)
	}
}

func TestImageServiceOpenAndDelete(t *testing.T) {
	svc, _ := newTestImageService(t)
	ctx := context.Background()
	if _, err := svc.Upload(ctx, UploadImageCommand{Path: "user1/avatar.webp", ContentType: "image/webp", Size: 3, Body: strings.NewReader("abc")}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	dl, err := svc.Open(ctx, "user1/avatar.webp")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(dl.Body)
	_ = dl.Body.Close()
	if string(data) != "abc" || dl.ContentType != "image/webp" {
		t.Fatalf("unexpected download %q %s", data, dl.ContentType)
	}

	listed, err := svc.List(ctx, "user1/")
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one listed image, got %v %v", listed, err)
	}

	if err := svc.Delete(ctx, "user1/avatar.webp"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Open(ctx, "user1/avatar.webp"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, "user1/avatar.webp"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}

func TestContentTypeForName(t *testing.T) {
	cases := map[string]string{
		"a.PNG":  "image/png",
		"b.gif":  "image/gif",
		"c.webp": "image/webp",
		"d.jpeg": "image/jpeg",
		"noext":  "image/jpeg",
	}
	for name, want := range cases {
		if got := ContentTypeForName(name); got != want {
			t.Fatalf("ContentTypeForName(%q) = %q, want %q", name, got, want)
		}
	}
}
