package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/platform/observability"
	"finitefield.org/taskboard/internal/platform/requestctx"
	"finitefield.org/taskboard/internal/platform/storage"
)

const (
	defaultImageMaxSize   = int64(10 * 1024 * 1024)
	defaultImagePresign   = time.Hour
	defaultImageExtension = "jpg"
	uploadPrefix          = "uploads/"
)

var (
	// ErrImageInvalidInput indicates a missing file or malformed object name.
	ErrImageInvalidInput = errors.New("image: invalid input")
	// ErrImageUnsupportedType indicates the content type is not an accepted image type.
	ErrImageUnsupportedType = errors.New("image: unsupported type")
	// ErrImageTooLarge indicates the upload exceeds the configured size limit.
	ErrImageTooLarge = errors.New("image: file too large")
	// ErrImageNotFound indicates the object does not exist.
	ErrImageNotFound = errors.New("image: not found")
	// ErrImageStorageFailure wraps unexpected storage failures.
	ErrImageStorageFailure = errors.New("image: storage failure")
)

// AllowedImageTypes lists the accepted upload content types.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ImageServiceDeps wires dependencies for the image service implementation.
type ImageServiceDeps struct {
	Store       storage.ObjectStore
	Metrics     *observability.Metrics
	MaxFileSize int64
	PresignTTL  time.Duration
	Clock       func() time.Time
}

type imageService struct {
	store      storage.ObjectStore
	metrics    *observability.Metrics
	maxSize    int64
	presignTTL time.Duration
	clock      func() time.Time
}

var _ ImageService = (*imageService)(nil)

// NewImageService constructs an ImageService on top of an object store.
func NewImageService(deps ImageServiceDeps) (ImageService, error) {
	if deps.Store == nil {
		return nil, errors.New("image service: object store is required")
	}
	maxSize := deps.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultImageMaxSize
	}
	ttl := deps.PresignTTL
	if ttl <= 0 {
		ttl = defaultImagePresign
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &imageService{
		store:      deps.Store,
		metrics:    deps.Metrics,
		maxSize:    maxSize,
		presignTTL: ttl,
		clock:      clock,
	}, nil
}

func (s *imageService) MaxFileSize() int64 { return s.maxSize }

func (s *imageService) Upload(ctx context.Context, cmd UploadImageCommand) (domain.Image, error) {
	if cmd.Body == nil {
		s.metrics.ImageUpload(ctx, "rejected", 0)
		return domain.Image{}, fmt.Errorf("%w: no file provided", ErrImageInvalidInput)
	}
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	if !isAllowedImageType(contentType) {
		s.metrics.ImageUpload(ctx, "rejected", 0)
		return domain.Image{}, fmt.Errorf("%w: allowed types: %s", ErrImageUnsupportedType, strings.Join(AllowedImageTypes, ", "))
	}
	if cmd.Size > s.maxSize {
		s.metrics.ImageUpload(ctx, "rejected", 0)
		return domain.Image{}, fmt.Errorf("%w: maximum size is %dMB", ErrImageTooLarge, s.maxSize/1024/1024)
	}

	name := strings.TrimSpace(cmd.Path)
	if name == "" {
		name = DefaultObjectName(cmd.Filename, s.clock())
	}
	name, err := cleanObjectName(name)
	if err != nil {
		s.metrics.ImageUpload(ctx, "rejected", 0)
		return domain.Image{}, err
	}

	obj, err := s.store.Upload(ctx, name, cmd.Body, cmd.Size, contentType)
	if err != nil {
		s.metrics.ImageUpload(ctx, "error", 0)
		return domain.Image{}, fmt.Errorf("%w: %v", ErrImageStorageFailure, err)
	}
	url, err := s.store.PresignedURL(ctx, obj.Name, s.presignTTL)
	if err != nil {
		s.metrics.ImageUpload(ctx, "error", 0)
		return domain.Image{}, fmt.Errorf("%w: %v", ErrImageStorageFailure, err)
	}

	size := cmd.Size
	if size <= 0 {
		size = obj.Size
	}
	s.metrics.ImageUpload(ctx, "ok", size)
	requestctx.Logger(ctx).Info("image uploaded",
		zap.String("object", obj.Name),
		zap.String("content_type", contentType),
		zap.Int64("size", size),
	)
	return domain.Image{
		ObjectName:   obj.Name,
		ContentType:  contentType,
		Size:         size,
		LastModified: obj.LastModified,
		URL:          url,
	}, nil
}

func (s *imageService) Open(ctx context.Context, objectName string) (ImageDownload, error) {
	name, err := cleanObjectName(objectName)
	if err != nil {
		return ImageDownload{}, err
	}
	body, obj, err := s.store.Download(ctx, name)
	if err != nil {
		return ImageDownload{}, s.mapStoreError(err)
	}
	return ImageDownload{
		Body:        body,
		ContentType: ContentTypeForName(name),
		Size:        obj.Size,
		ObjectName:  name,
	}, nil
}

func (s *imageService) Delete(ctx context.Context, objectName string) error {
	name, err := cleanObjectName(objectName)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, name); err != nil {
		return s.mapStoreError(err)
	}
	return nil
}

func (s *imageService) List(ctx context.Context, prefix string) ([]domain.Image, error) {
	objects, err := s.store.List(ctx, strings.TrimLeft(strings.TrimSpace(prefix), "/"))
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	images := make([]domain.Image, 0, len(objects))
	for _, obj := range objects {
		contentType := obj.ContentType
		if contentType == "" {
			contentType = ContentTypeForName(obj.Name)
		}
		images = append(images, domain.Image{
			ObjectName:   obj.Name,
			ContentType:  contentType,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return images, nil
}

func (s *imageService) mapStoreError(err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("%w: %v", ErrImageNotFound, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrImageStorageFailure, err)
}

// DefaultObjectName builds uploads/{unixMillis}-{filename} with every character
// outside [a-zA-Z0-9.-] replaced by an underscore.
func DefaultObjectName(filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image." + defaultImageExtension
	}
	return fmt.Sprintf("%s%d-%s", uploadPrefix, now.UnixMilli(), unsafeFilenameChars.ReplaceAllString(base, "_"))
}

// ContentTypeForName derives the served content type from the extension,
// defaulting to JPEG.
func ContentTypeForName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	switch ext {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func cleanObjectName(name string) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", fmt.Errorf("%w: object name is required", ErrImageInvalidInput)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: object name must not contain ..", ErrImageInvalidInput)
		}
	}
	return name, nil
}

func isAllowedImageType(contentType string) bool {
	for _, allowed := range AllowedImageTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}
