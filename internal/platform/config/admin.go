package config

import (
	"context"
	"strings"
	"time"
)

const (
	defaultAdminAddress  = ":3000"
	defaultAdminPageSize = 10
	defaultAPIBaseURL    = "http://localhost:8080"
	defaultMockDataFile  = "mock/data/db.json"
	localSessionHashKey  = "taskboard-local-session-hash-key-0123456789abcdef"
)

// AdminConfig captures the admin console configuration.
type AdminConfig struct {
	Environment   string
	LogLevel      string
	Address       string
	BasePath      string
	APIBaseURL    string
	APITimeout    time.Duration
	TokenSecret   string
	Firebase      FirebaseConfig
	Session       SessionConfig
	PageSize      int
	MockDataFile  string
	ExplicitTodos bool
}

// FirebaseConfig enables the Firebase ID token authenticator when ProjectID is set.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	HashKey      string
	BlockKey     string
	CookieSecure bool
	IdleTimeout  time.Duration
}

// LoadAdmin assembles the admin console configuration with the same precedence
// rules and secret handling as Load.
func LoadAdmin(ctx context.Context, opts ...Option) (AdminConfig, error) {
	lookup, options, err := newLookup(opts)
	if err != nil {
		return AdminConfig{}, err
	}

	env := strings.ToLower(stringWithDefault(lookup, defaultEnvironment, "ADMIN_ENVIRONMENT", "NODE_ENV"))
	cfg := AdminConfig{
		Environment: env,
		LogLevel:    stringWithDefault(lookup, "info", "ADMIN_LOG_LEVEL", "LOG_LEVEL"),
		Address:     stringWithDefault(lookup, defaultAdminAddress, "ADMIN_HTTP_ADDR"),
		BasePath:    stringWithDefault(lookup, "/", "ADMIN_BASE_PATH"),
		APIBaseURL:  strings.TrimRight(stringWithDefault(lookup, defaultAPIBaseURL, "ADMIN_API_BASE_URL", "API_URL"), "/"),
		APITimeout:  durationWithDefault(lookup, "ADMIN_API_TIMEOUT", 10*time.Second),
		TokenSecret: stringWithDefault(lookup, "", "API_AUTH_TOKEN_SECRET", "AUTH_SECRET"),
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "", "FIREBASE_PROJECT_ID"),
			CredentialsFile: stringWithDefault(lookup, "", "GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Session: SessionConfig{
			HashKey:      stringWithDefault(lookup, "", "ADMIN_SESSION_HASH_KEY"),
			BlockKey:     stringWithDefault(lookup, "", "ADMIN_SESSION_BLOCK_KEY"),
			CookieSecure: boolWithDefault(lookup, "ADMIN_SESSION_COOKIE_SECURE", env == "production"),
			IdleTimeout:  durationWithDefault(lookup, "ADMIN_SESSION_IDLE_TIMEOUT", 30*time.Minute),
		},
		PageSize:      intWithDefault(lookup, "ADMIN_PAGE_SIZE", defaultAdminPageSize),
		MockDataFile:  stringWithDefault(lookup, defaultMockDataFile, "ADMIN_MOCK_DATA_FILE"),
		ExplicitTodos: boolWithDefault(lookup, "ADMIN_TODOS_EXPLICIT_SUBMIT", false),
	}

	if err := resolveSecrets(ctx, map[string]*string{
		"TokenSecret":      &cfg.TokenSecret,
		"Session.HashKey":  &cfg.Session.HashKey,
		"Session.BlockKey": &cfg.Session.BlockKey,
	}, options.secret); err != nil {
		return AdminConfig{}, err
	}

	if env != "production" {
		if cfg.TokenSecret == "" {
			cfg.TokenSecret = "taskboard-local-development-secret"
		}
		if cfg.Session.HashKey == "" {
			cfg.Session.HashKey = localSessionHashKey
		}
	}

	var invalid []string
	if cfg.Address == "" {
		invalid = append(invalid, "Address")
	}
	if cfg.TokenSecret == "" && cfg.Firebase.ProjectID == "" {
		invalid = append(invalid, "TokenSecret")
	}
	if len(cfg.Session.HashKey) < 32 {
		invalid = append(invalid, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		invalid = append(invalid, "Session.BlockKey")
	}
	if cfg.PageSize <= 0 {
		invalid = append(invalid, "PageSize")
	}
	if len(invalid) > 0 {
		return AdminConfig{}, &ValidationError{fields: invalid}
	}
	return cfg, nil
}
