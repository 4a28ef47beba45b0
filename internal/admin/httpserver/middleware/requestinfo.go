package middleware

import (
	"context"
	"net/http"
	"strings"
)

type requestInfoContextKey struct{}

// RequestInfo holds lightweight request metadata exposed to templates.
type RequestInfo struct {
	Path        string
	BasePath    string
	Environment string
}

// RequestInfoMiddleware annotates the context with the request path, the
// admin base path and the deployment environment label.
func RequestInfoMiddleware(basePath, environment string) func(http.Handler) http.Handler {
	base := NormalizeBasePath(basePath)
	env := strings.TrimSpace(environment)
	if env == "" {
		env = "development"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := RequestInfo{Path: r.URL.Path, BasePath: base, Environment: env}
			ctx := context.WithValue(r.Context(), requestInfoContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestInfoFromContext returns the request metadata stored by RequestInfoMiddleware.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	info, ok := ctx.Value(requestInfoContextKey{}).(RequestInfo)
	if !ok {
		return RequestInfo{BasePath: "/", Environment: "development"}
	}
	return info
}

// BasePathFromContext returns the resolved admin base path or "/" when unavailable.
func BasePathFromContext(ctx context.Context) string {
	return RequestInfoFromContext(ctx).BasePath
}

// NormalizeBasePath returns base with a leading slash and no trailing slash;
// empty input yields "/".
func NormalizeBasePath(base string) string {
	base = strings.TrimSpace(base)
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	base = strings.TrimRight(base, "/")
	if base == "" {
		return "/"
	}
	return base
}

// JoinBase prefixes p with the base path.
func JoinBase(base, p string) string {
	base = NormalizeBasePath(base)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if base == "/" {
		return p
	}
	if p == "/" {
		return base
	}
	return base + p
}
