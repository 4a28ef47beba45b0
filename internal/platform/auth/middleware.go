package auth

import (
	"context"
	"errors"
	"net/http"

	"finitefield.org/taskboard/internal/platform/httpx"
	"finitefield.org/taskboard/internal/platform/requestctx"
)

type claimsContextKey struct{}

// WithClaims stores verified claims on the context.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the verified claims attached by the middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}

// OptionalBearer verifies a bearer token when one is present. Requests without
// an Authorization header pass through anonymously; a bad token is rejected.
func (m *TokenManager) OptionalBearer() func(http.Handler) http.Handler {
	return m.bearer(false)
}

// RequireBearer rejects requests without a valid bearer token.
func (m *TokenManager) RequireBearer() func(http.Handler) http.Handler {
	return m.bearer(true)
}

func (m *TokenManager) bearer(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && !required {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := ExtractBearerToken(header)
			if !ok {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authorization header missing or invalid", http.StatusUnauthorized))
				return
			}
			claims, err := m.Verify(token)
			if err != nil {
				message := "invalid session token"
				if errors.Is(err, ErrTokenExpired) {
					message = "session token expired"
				}
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", message, http.StatusUnauthorized))
				return
			}
			ctx := WithClaims(r.Context(), claims)
			ctx = requestctx.WithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
