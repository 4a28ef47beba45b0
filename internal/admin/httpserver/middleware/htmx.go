package middleware

import (
	"context"
	"net/http"
	"strings"
)

// Request and response headers of the htmx protocol.
const (
	hxRequest    = "HX-Request"
	hxCurrentURL = "HX-Current-URL"
	hxTarget     = "HX-Target"
	hxTrigger    = "HX-Trigger"
	hxRedirect   = "HX-Redirect"
	hxRefresh    = "HX-Refresh"
	hxReplaceURL = "HX-Replace-Url"
)

type htmxContextKey struct{}

// HTMXInfo is what the list views need from an htmx request. CurrentURL is the
// browser location the fragment request was issued from.
type HTMXInfo struct {
	IsHTMX     bool
	CurrentURL string
	Target     string
	Trigger    string
}

// HTMX parses the HX-* request headers into the context.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfo{IsHTMX: strings.EqualFold(r.Header.Get(hxRequest), "true")}
			if info.IsHTMX {
				info.CurrentURL = r.Header.Get(hxCurrentURL)
				info.Target = r.Header.Get(hxTarget)
				info.Trigger = r.Header.Get(hxTrigger)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxContextKey{}, info)))
		})
	}
}

// HTMXInfoFromContext returns the parsed headers, or the zero value outside HTMX.
func HTMXInfoFromContext(ctx context.Context) HTMXInfo {
	info, _ := ctx.Value(htmxContextKey{}).(HTMXInfo)
	return info
}

// IsHTMXRequest reports whether htmx issued the request.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXInfoFromContext(ctx).IsHTMX
}

// HXRedirect asks htmx to perform a full navigation to target.
func HXRedirect(w http.ResponseWriter, target string) {
	w.Header().Set(hxRedirect, target)
}

// HXRefresh asks htmx to reload the current page.
func HXRefresh(w http.ResponseWriter) {
	w.Header().Set(hxRefresh, "true")
}

// HXReplaceURL replaces the browser location without adding a history entry.
func HXReplaceURL(w http.ResponseWriter, location string) {
	w.Header().Set(hxReplaceURL, location)
}

// RequireHTMX hides fragment routes from direct navigation with a 404.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", hxRequest)
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore disables caching; every admin page depends on the session.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
