// Package session keeps the admin console's per-browser state (signed-in
// user, API token, unsubmitted filter drafts) in a signed cookie.
package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName       = "taskboard_session"
	defaultCookiePath       = "/"
	defaultLifetime         = 12 * time.Hour
	defaultRememberLifetime = 14 * 24 * time.Hour
	defaultIdleTimeout      = 30 * time.Minute
)

var (
	// ErrExpired is returned by Load when the cookie outlived its absolute or idle limit.
	ErrExpired = errors.New("session expired")
	// ErrInvalidConfig is returned by NewManager for missing or malformed keys.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// Config controls cookie encoding and lifecycle limits.
type Config struct {
	CookieName     string
	HashKey        []byte
	// BlockKey enables encryption when set; 16, 24 or 32 bytes.
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout      time.Duration
	Lifetime         time.Duration
	RememberLifetime time.Duration
	Now              func() time.Time
}

func (cfg Config) withDefaults() Config {
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.RememberLifetime <= 0 {
		cfg.RememberLifetime = defaultRememberLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// Manager loads and stores sessions through securecookie.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

// NewManager validates the keys and applies defaults.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.RememberLifetime / time.Second))
	return &Manager{cfg: cfg, codec: codec}, nil
}

// New starts an empty session. It is dirty so the first response sets the cookie.
func (m *Manager) New() *Session {
	now := m.cfg.Now().UTC()
	return &Session{
		mgr: m,
		data: Data{
			ID:         newSessionID(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  m.expiry(now, false),
		},
		dirty: true,
	}
}

// Load decodes the request cookie. A missing or undecodable cookie yields a
// fresh session; an expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}
	var data Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &data); err != nil || data.ID == "" {
		return m.New(), nil
	}
	if m.expired(data, m.cfg.Now().UTC()) {
		return nil, ErrExpired
	}
	return &Session{mgr: m, data: data}, nil
}

// Save refreshes the activity timestamp and writes the cookie, or clears it
// when the session was destroyed.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	now := m.cfg.Now().UTC()
	sess.touch(now)
	value, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	maxAge := 0
	if exp := sess.data.ExpiresAt; !exp.IsZero() {
		maxAge = -1
		if left := exp.Sub(now); left > 0 {
			maxAge = int(left.Round(time.Second) / time.Second)
		}
	}
	http.SetCookie(w, m.cookie(value, sess.data.ExpiresAt, maxAge))
	return nil
}

// Destroy clears the cookie on w.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", time.Unix(0, 0), -1))
}

func (m *Manager) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     m.cfg.CookiePath,
		MaxAge:   maxAge,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
	if !expires.IsZero() {
		c.Expires = expires.UTC()
	}
	return c
}

func (m *Manager) expiry(from time.Time, remember bool) time.Time {
	if remember {
		return from.UTC().Add(m.cfg.RememberLifetime)
	}
	return from.UTC().Add(m.cfg.Lifetime)
}

func (m *Manager) expired(data Data, now time.Time) bool {
	if !data.ExpiresAt.IsZero() && now.After(data.ExpiresAt) {
		return true
	}
	last := data.LastActive
	if last.IsZero() {
		last = data.CreatedAt
	}
	return !last.IsZero() && now.Sub(last) > m.cfg.IdleTimeout
}

func newSessionID() string {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		panic("session: crypto/rand unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(key)
}
