package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:       "test_session",
		HashKey:          []byte("12345678901234567890123456789012"),
		BlockKey:         []byte("abcdefghijklmnopqrstuv0123456789"),
		IdleTimeout:      10 * time.Minute,
		Lifetime:         2 * time.Hour,
		RememberLifetime: 48 * time.Hour,
		Now:              clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return mgr, clock
}

func roundTrip(t *testing.T, mgr *Manager, sess *Session) *Session {
	t.Helper()

	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.AddCookie(cookie)
	loaded, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return loaded
}

func TestManagerPersistsUserTokenAndDrafts(t *testing.T) {
	mgr, clock := newTestManager(t)

	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess.ID() == "" || !sess.CreatedAt().Equal(clock.current) {
		t.Fatalf("unexpected fresh session: id=%q created=%v", sess.ID(), sess.CreatedAt())
	}

	sess.SetUser(&User{ID: "user-1", Email: "alice@example.com", Name: "Alice"})
	sess.SetAPIToken("api-token")
	sess.SetDraft("todos", map[string]string{"q": "report", "status": "active"})

	clock.current = clock.current.Add(5 * time.Minute)
	loaded := roundTrip(t, mgr, sess)

	if loaded.ID() != sess.ID() {
		t.Fatalf("expected same session id, got %q", loaded.ID())
	}
	if user := loaded.User(); user == nil || user.ID != "user-1" || user.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if loaded.APIToken() != "api-token" {
		t.Fatalf("unexpected api token %q", loaded.APIToken())
	}
	draft := loaded.Draft("todos")
	if draft["q"] != "report" || draft["status"] != "active" || len(draft) != 2 {
		t.Fatalf("unexpected draft: %v", draft)
	}
	if loaded.Draft("mock") != nil {
		t.Fatalf("expected no draft for other view")
	}
	if !loaded.LastActive().Equal(clock.current) {
		t.Fatalf("expected last active to be touched, got %v", loaded.LastActive())
	}
}

func TestSessionDraftCopiesAndRemoval(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.dirty = false

	input := map[string]string{"q": "a"}
	sess.SetDraft("todos", input)
	input["q"] = "mutated"
	if got := sess.Draft("todos")["q"]; got != "a" {
		t.Fatalf("draft aliases caller map: %q", got)
	}
	if !sess.Dirty() {
		t.Fatalf("expected dirty after SetDraft")
	}

	sess.dirty = false
	sess.SetDraft("todos", map[string]string{"q": "a"})
	if sess.Dirty() {
		t.Fatalf("identical draft should not mark dirty")
	}

	out := sess.Draft("todos")
	out["q"] = "changed"
	if sess.Draft("todos")["q"] != "a" {
		t.Fatalf("Draft returned internal map")
	}

	sess.SetDraft("todos", map[string]string{})
	if draft := sess.Draft("todos"); draft == nil || len(draft) != 0 {
		t.Fatalf("expected empty draft to be kept, got %v", draft)
	}

	sess.SetDraft("todos", nil)
	if sess.Draft("todos") != nil {
		t.Fatalf("expected draft removal")
	}
}

func TestManagerIdleExpiry(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess := mgr.New()

	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")

	clock.current = clock.current.Add(11 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if _, err := mgr.Load(req); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestManagerRememberMeExtendsExpiry(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess := mgr.New()
	if want := clock.current.Add(2 * time.Hour); !sess.ExpiresAt().Equal(want) {
		t.Fatalf("unexpected default expiry %v", sess.ExpiresAt())
	}
	sess.SetRememberMe(true)
	if want := clock.current.Add(48 * time.Hour); !sess.ExpiresAt().Equal(want) {
		t.Fatalf("unexpected remember expiry %v", sess.ExpiresAt())
	}
}

func TestManagerIgnoresTamperedCookie(t *testing.T) {
	mgr, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "garbage"})

	sess, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess.User() != nil || !sess.Dirty() {
		t.Fatalf("expected a fresh session")
	}
}

func TestManagerCookieAttributes(t *testing.T) {
	mgr, err := NewManager(Config{
		HashKey:      []byte("12345678901234567890123456789012"),
		CookiePath:   "/admin",
		CookieSecure: true,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, mgr.New()); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), defaultCookieName)
	if cookie == nil {
		t.Fatalf("expected %s cookie", defaultCookieName)
	}
	if cookie.Path != "/admin" || !cookie.Secure || !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
	if cookie.MaxAge != int(defaultLifetime/time.Second) {
		t.Fatalf("unexpected max age %d", cookie.MaxAge)
	}
}

func TestManagerDestroyClearsCookie(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.Destroy()

	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil || cookie.MaxAge != -1 || cookie.Value != "" {
		t.Fatalf("expected expired cookie, got %+v", cookie)
	}
}

func TestNewManagerValidatesKeys(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing hash key, got %v", err)
	}
	_, err := NewManager(Config{HashKey: []byte("12345678901234567890123456789012"), BlockKey: []byte("short")})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bad block key, got %v", err)
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
