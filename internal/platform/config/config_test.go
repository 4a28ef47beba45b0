package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Backend != DatabasePostgres {
		t.Errorf("expected postgres backend, got %s", cfg.Database.Backend)
	}
	if cfg.Storage.Backend != StorageMinIO {
		t.Errorf("expected minio storage outside production, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Bucket != "images" {
		t.Errorf("expected images bucket, got %s", cfg.Storage.Bucket)
	}
	if cfg.Storage.MaxFileSize != 10*1024*1024 {
		t.Errorf("unexpected max file size %d", cfg.Storage.MaxFileSize)
	}
	if cfg.Storage.PresignTTL != time.Hour {
		t.Errorf("unexpected presign ttl %s", cfg.Storage.PresignTTL)
	}
	if cfg.Auth.TokenSecret == "" {
		t.Errorf("expected a development token secret")
	}
}

func TestLoadSelectsS3InProduction(t *testing.T) {
	env := map[string]string{
		"NODE_ENV":              "production",
		"API_AUTH_TOKEN_SECRET": "prod-secret",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Backend != StorageS3 {
		t.Fatalf("expected s3 backend in production, got %s", cfg.Storage.Backend)
	}

	env["STORAGE_BACKEND"] = "minio"
	cfg, err = Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Backend != StorageMinIO {
		t.Fatalf("explicit backend should win, got %s", cfg.Storage.Backend)
	}
}

func TestLoadRequiresTokenSecretInProduction(t *testing.T) {
	env := map[string]string{"API_ENVIRONMENT": "production"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fields := validation.Fields(); len(fields) != 1 || fields[0] != "Auth.TokenSecret" {
		t.Fatalf("unexpected invalid fields %v", fields)
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	env := map[string]string{
		"MINIO_ACCESS_KEY": "secret://minio-access",
		"MINIO_SECRET_KEY": "plain",
	}
	var seen []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		seen = append(seen, ref)
		return "resolved-" + ref, nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.MinIO.AccessKey != "resolved-minio-access" {
		t.Fatalf("expected resolved access key, got %q", cfg.Storage.MinIO.AccessKey)
	}
	if cfg.Storage.MinIO.SecretKey != "plain" {
		t.Fatalf("plain values must pass through, got %q", cfg.Storage.MinIO.SecretKey)
	}
	if len(seen) != 1 {
		t.Fatalf("expected exactly one resolution, got %v", seen)
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := map[string]string{"DATABASE_URL": "secret://db-url"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected unconfigured resolver error, got %v", err)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "API_SERVER_PORT=9090\nMINIO_MAX_FILE_SIZE=2048\n# comment\nexport API_DATABASE_BACKEND=firestore\nAPI_FIRESTORE_PROJECT_ID=demo\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"API_SERVER_PORT": "7070"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("env map should override .env, got %s", cfg.Server.Port)
	}
	if cfg.Storage.MaxFileSize != 2048 {
		t.Errorf("expected max file size from .env, got %d", cfg.Storage.MaxFileSize)
	}
	if cfg.Database.Backend != DatabaseFirestore || cfg.Firestore.ProjectID != "demo" {
		t.Errorf("expected firestore backend for demo, got %s/%s", cfg.Database.Backend, cfg.Firestore.ProjectID)
	}
}

func TestLoadAdmin(t *testing.T) {
	cfg, err := LoadAdmin(context.Background(), WithEnvMap(map[string]string{
		"ADMIN_API_BASE_URL": "http://api.internal:8080/",
		"ADMIN_PAGE_SIZE":    "25",
	}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("LoadAdmin returned error: %v", err)
	}
	if cfg.APIBaseURL != "http://api.internal:8080" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.APIBaseURL)
	}
	if cfg.PageSize != 25 {
		t.Errorf("expected page size 25, got %d", cfg.PageSize)
	}
	if cfg.Session.HashKey == "" {
		t.Errorf("expected local session key")
	}

	_, err = LoadAdmin(context.Background(), WithEnvMap(map[string]string{
		"ADMIN_ENVIRONMENT":       "production",
		"API_AUTH_TOKEN_SECRET":   "s",
		"ADMIN_SESSION_HASH_KEY":  "short",
		"ADMIN_SESSION_BLOCK_KEY": "abc",
	}), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validation.Fields()) != 2 {
		t.Fatalf("expected hash and block key errors, got %v", validation.Fields())
	}
}
