package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "finitefield.org/taskboard/internal/admin/httpserver/middleware"
	"finitefield.org/taskboard/internal/admin/httpserver/ui"
	"finitefield.org/taskboard/internal/mockdata"
	"finitefield.org/taskboard/internal/platform/observability"
	"finitefield.org/taskboard/public"
)

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address       string
	BasePath      string
	LoginPath     string
	Environment   string
	Logger        *zap.Logger
	Authenticator custommw.Authenticator
	Sessions      custommw.SessionStore
	Accounts      AccountService
	Todos         ui.TodoService
	// IDTokenLogin makes the login form accept a Firebase ID token instead of
	// email and password.
	IDTokenLogin  bool
	MockData      *mockdata.Database
	MockSource    string
	PageSize      int
	ExplicitTodos bool

	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Timeout(60 * time.Second))

	staticContent, err := public.StaticFS()
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	basePath := custommw.NormalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	mountAdminRoutes(router, basePath, routeOptions{
		Environment: cfg.Environment,
		LoginPath:   loginPath,
		CSRF:        csrfCfg,
		Sessions:    cfg.Sessions,
		Auth:        newAuthHandlers(cfg.Authenticator, cfg.Accounts, cfg.IDTokenLogin, basePath, loginPath),
		Authn:       cfg.Authenticator,
		UI: ui.NewHandlers(ui.Dependencies{
			Todos:         cfg.Todos,
			MockData:      cfg.MockData,
			MockSource:    cfg.MockSource,
			PageSize:      cfg.PageSize,
			ExplicitTodos: cfg.ExplicitTodos,
		}),
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type routeOptions struct {
	Environment string
	LoginPath   string
	CSRF        custommw.CSRFConfig
	Sessions    custommw.SessionStore
	Authn       custommw.Authenticator
	Auth        *authHandlers
	UI          *ui.Handlers
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	router.Route(base, func(r chi.Router) {
		r.Use(custommw.RequestInfoMiddleware(base, opts.Environment))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/login", opts.Auth.LoginForm)
		r.Post("/login", opts.Auth.LoginSubmit)
		if opts.Auth.signupPath != "" {
			r.Get("/signup", opts.Auth.SignupForm)
			r.Post("/signup", opts.Auth.SignupSubmit)
		}

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Authn, opts.LoginPath))

			h := opts.UI
			r.Get("/", h.Home)
			r.Post("/logout", opts.Auth.Logout)

			r.Get("/todos", h.TodosPage)
			RegisterFragment(r, "/todos/table", h.TodosTable)
			r.Post("/todos/filters/field", h.TodosFilterField)
			r.Post("/todos/filters/submit", h.TodosFilterSubmit)
			r.Post("/todos/filters/reset", h.TodosFilterReset)
			r.Post("/todos/bulk", h.TodosBulk)

			if h.HasMockData() {
				r.Get("/mock", h.MockPage)
				RegisterFragment(r, "/mock/table", h.MockTable)
				r.Post("/mock/filters/field", h.MockFilterField)
				r.Post("/mock/filters/submit", h.MockFilterSubmit)
				r.Post("/mock/filters/reset", h.MockFilterReset)
			}
		})
	})
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return custommw.JoinBase(base, "/login")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}
