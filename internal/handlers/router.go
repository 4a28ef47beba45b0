package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finitefield.org/taskboard/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	apiMW       []func(http.Handler) http.Handler
	system      *SystemHandlers

	todos  RouteRegistrar
	images RouteRegistrar
	users  RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the API route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	if cfg.system != nil {
		cfg.system.Routes(r)
	}

	r.Route(cfg.basePath, func(api chi.Router) {
		for _, mw := range cfg.apiMW {
			if mw != nil {
				api.Use(mw)
			}
		}
		for _, registrar := range []RouteRegistrar{cfg.todos, cfg.images, cfg.users} {
			if registrar != nil {
				registrar(api)
			}
		}
	})
	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithAPIMiddlewares configures middlewares applied to the /api group only.
func WithAPIMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.apiMW = append(cfg.apiMW, mw...)
	}
}

// WithSystemHandlers mounts /, /health, /readyz and the API documentation.
func WithSystemHandlers(h *SystemHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.system = h
	}
}

// WithTodoRoutes configures the registrar responsible for todo endpoints.
func WithTodoRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.todos = reg
	}
}

// WithImageRoutes configures the registrar responsible for image endpoints.
func WithImageRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.images = reg
	}
}

// WithUserRoutes configures the registrar responsible for signup and session endpoints.
func WithUserRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.users = reg
	}
}
