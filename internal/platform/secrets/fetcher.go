package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultFallbackPath = ".secrets.local"

// ErrNotFound is returned when neither Secret Manager nor the local fallback holds the secret.
var ErrNotFound = errors.New("secrets: not found")

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret references against Google Secret Manager, caching values
// for the life of the process. A local dotenv-style file serves as fallback for
// development machines without Secret Manager access.
type Fetcher struct {
	client       secretManagerClient
	ownsClient   bool
	projectID    string
	logger       *zap.Logger
	fallbackPath string

	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]string
}

type fetcherConfig struct {
	logger       *zap.Logger
	projectID    string
	fallbackPath string
	client       secretManagerClient
	clientOpts   []option.ClientOption
}

// Option customises Fetcher construction.
type Option func(*fetcherConfig)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *fetcherConfig) { cfg.logger = logger }
}

// WithProject sets the project used for short secret names.
func WithProject(projectID string) Option {
	return func(cfg *fetcherConfig) { cfg.projectID = strings.TrimSpace(projectID) }
}

// WithFallbackFile overrides the local fallback file path.
func WithFallbackFile(path string) Option {
	return func(cfg *fetcherConfig) { cfg.fallbackPath = path }
}

// WithClientOptions forwards options to the Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *fetcherConfig) { cfg.clientOpts = append(cfg.clientOpts, opts...) }
}

func withClient(client secretManagerClient) Option {
	return func(cfg *fetcherConfig) { cfg.client = client }
}

// NewFetcher builds a Fetcher. Without a project the fetcher only consults the fallback file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	cfg := fetcherConfig{fallbackPath: defaultFallbackPath}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	f := &Fetcher{
		client:       cfg.client,
		projectID:    cfg.projectID,
		logger:       cfg.logger,
		fallbackPath: cfg.fallbackPath,
		cache:        make(map[string]string),
	}
	if f.client == nil && f.projectID != "" {
		client, err := secretmanager.NewClient(ctx, cfg.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("secrets: create client: %w", err)
		}
		f.client = client
		f.ownsClient = true
	}
	return f, nil
}

// Close releases the Secret Manager client when the fetcher created it.
func (f *Fetcher) Close() error {
	if f == nil || !f.ownsClient || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// Resolve returns the secret payload for ref. Accepted forms are "name",
// "name@version" and "projects/{p}/secrets/{name}[/versions/{v}]".
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	resource, short, err := f.resourceName(ref)
	if err != nil {
		return "", err
	}

	f.mu.RLock()
	value, ok := f.cache[resource]
	f.mu.RUnlock()
	if ok {
		return value, nil
	}

	if f.client != nil {
		resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
		if err == nil {
			value = string(resp.GetPayload().GetData())
			f.store(resource, value)
			return value, nil
		}
		if !isFallbackError(err) {
			return "", fmt.Errorf("secrets: access %s: %w", short, err)
		}
		f.logger.Debug("secret manager unavailable, using local fallback", zap.String("secret", short), zap.Error(err))
	}

	f.fallbackOnce.Do(f.loadFallback)
	if value, ok := f.fallback[short]; ok {
		f.store(resource, value)
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, short)
}

func (f *Fetcher) store(key, value string) {
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
}

func (f *Fetcher) resourceName(ref string) (resource, short string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", errors.New("secrets: empty reference")
	}
	if strings.HasPrefix(ref, "projects/") {
		parts := strings.Split(ref, "/")
		if len(parts) != 4 && len(parts) != 6 {
			return "", "", fmt.Errorf("secrets: malformed reference %q", ref)
		}
		if len(parts) == 4 {
			ref += "/versions/latest"
		}
		return ref, parts[3], nil
	}

	name, version, _ := strings.Cut(ref, "@")
	if version == "" {
		version = "latest"
	}
	project := f.projectID
	if project == "" {
		project = "-"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, name, version), name, nil
}

func (f *Fetcher) loadFallback() {
	if f.fallbackPath == "" {
		return
	}
	values, err := godotenv.Read(f.fallbackPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("read local secrets failed", zap.String("path", f.fallbackPath), zap.Error(err))
		}
		return
	}
	f.fallback = values
}

func isFallbackError(err error) bool {
	switch status.Code(err) {
	case codes.NotFound, codes.PermissionDenied, codes.Unavailable, codes.Unauthenticated:
		return true
	default:
		return false
	}
}
