package testutil

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"finitefield.org/taskboard/internal/admin/httpserver"
	"finitefield.org/taskboard/internal/admin/httpserver/middleware"
	"finitefield.org/taskboard/internal/admin/httpserver/ui"
	"finitefield.org/taskboard/internal/admin/session"
	"finitefield.org/taskboard/internal/mockdata"
)

// CSRFCookieName is the CSRF cookie NewServer configures.
const CSRFCookieName = "csrf_token"

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the admin server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithTodoService wires a custom todo service implementation.
func WithTodoService(service ui.TodoService) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Todos = service
	}
}

// WithAccounts wires a custom account service implementation.
func WithAccounts(accounts httpserver.AccountService) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Accounts = accounts
	}
}

// WithMockData enables the mock data pages.
func WithMockData(db *mockdata.Database) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.MockData = db
		cfg.MockSource = "testdata/db.json"
	}
}

// WithExplicitTodos switches the todo filters to explicit submit.
func WithExplicitTodos() ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.ExplicitTodos = true
	}
}

// WithIDTokenLogin enables the ID token login form.
func WithIDTokenLogin() ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.IDTokenLogin = true
	}
}

// NewServer constructs an httptest server running the admin HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{
		HashKey: []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/admin",
		Environment:    "test",
		CSRFCookieName: CSRFCookieName,
		CSRFHeaderName: "X-CSRF-Token",
		Authenticator: &StaticAuthenticator{
			Token: TestToken,
			User:  &middleware.User{ID: "user-1", Email: "staff@example.com", Name: "Staff"},
		},
		Sessions: sessions,
		Accounts: NewAccounts("staff@example.com", "password123", "Staff"),
		Todos:    NewTodoStore(25),
		PageSize: 10,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// Client drives a test server with a cookie jar. Redirects are not followed.
type Client struct {
	t     testing.TB
	ts    *httptest.Server
	http  *http.Client
	Token string
}

// NewClient returns a client for ts that authenticates with token when it is
// not empty.
func NewClient(t testing.TB, ts *httptest.Server, token string) *Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Client{
		t:  t,
		ts: ts,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Token: token,
	}
}

// Response is a fully read response.
type Response struct {
	*http.Response
	Body []byte
}

// Get issues a GET. A non-empty currentURL marks it as an htmx request.
func (c *Client) Get(path, currentURL string) Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.ts.URL+path, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	c.htmx(req, currentURL)
	return c.do(req)
}

// Post submits form with the CSRF token. A non-empty currentURL marks it as an
// htmx request issued from that page.
func (c *Client) Post(path string, form url.Values, currentURL string) Response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFormField, c.CSRFToken())
	req, err := http.NewRequest(http.MethodPost, c.ts.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.htmx(req, currentURL)
	return c.do(req)
}

// CSRFToken returns the CSRF cookie, fetching the login page first if the jar
// does not hold one yet.
func (c *Client) CSRFToken() string {
	c.t.Helper()
	if token := c.cookie(CSRFCookieName); token != "" {
		return token
	}
	req, err := http.NewRequest(http.MethodGet, c.ts.URL+"/admin/login?force=1", nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	c.do(req)
	token := c.cookie(CSRFCookieName)
	if token == "" {
		c.t.Fatalf("csrf cookie not issued")
	}
	return token
}

// cookie returns the value of the named cookie for the admin path.
func (c *Client) cookie(name string) string {
	u, err := url.Parse(c.ts.URL + "/admin/")
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// HasCookie reports whether the jar holds the named cookie for the admin path.
func (c *Client) HasCookie(name string) bool {
	return c.cookie(name) != ""
}

func (c *Client) htmx(req *http.Request, currentURL string) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if currentURL != "" {
		req.Header.Set("HX-Request", "true")
		req.Header.Set("HX-Current-URL", c.ts.URL+currentURL)
	}
}

func (c *Client) do(req *http.Request) Response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return Response{Response: resp, Body: body}
}
