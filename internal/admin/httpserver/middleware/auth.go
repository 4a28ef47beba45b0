package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	appsession "finitefield.org/taskboard/internal/admin/session"
	"finitefield.org/taskboard/internal/platform/auth"
	"finitefield.org/taskboard/internal/platform/requestctx"
)

type userContextKey struct{}

// User represents the signed-in account.
type User struct {
	ID    string
	Email string
	Name  string
	Token string
}

// Authenticator resolves a credential token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when authentication fails.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError contains reason codes for failed authentication attempts.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

const (
	// ReasonMissingToken indicates an auth attempt without credentials.
	ReasonMissingToken = "missing_token"
	// ReasonTokenInvalid indicates a malformed or invalid token.
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired indicates an expired token which may be recoverable.
	ReasonTokenExpired = "token_expired"
)

// IDTokenCookie carries a Firebase ID token when that authenticator is used.
const IDTokenCookie = "__session"

// TokenAuthenticator verifies the API's HS256 session tokens locally.
type TokenAuthenticator struct {
	tokens *auth.TokenManager
}

// NewTokenAuthenticator wraps a token manager sharing the API's secret.
func NewTokenAuthenticator(tokens *auth.TokenManager) *TokenAuthenticator {
	if tokens == nil {
		panic("token manager is required")
	}
	return &TokenAuthenticator{tokens: tokens}
}

// Authenticate implements Authenticator.
func (a *TokenAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, NewAuthError(ReasonTokenExpired, err)
		}
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}
	return &User{ID: claims.Subject, Email: claims.Email, Name: claims.Name, Token: token}, nil
}

// Auth validates incoming requests and either attaches a User to context or redirects to login.
// The token comes from the session first, then the Authorization header, then cookies.
func Auth(authenticator Authenticator, loginPath string) func(http.Handler) http.Handler {
	if authenticator == nil {
		panic("authenticator is required")
	}
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := requestctx.Logger(r.Context())

			token := requestToken(r)
			if token == "" {
				logger.Info("auth failure", zap.String("reason", ReasonMissingToken))
				handleUnauthorized(w, r, loginPath, ReasonMissingToken)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				reason := ReasonTokenInvalid
				var authErr *AuthError
				if errors.As(err, &authErr) && authErr.Reason != "" {
					reason = authErr.Reason
				}
				logger.Warn("auth failure", zap.String("reason", reason), zap.Error(err))
				if sess, ok := SessionFromContext(r.Context()); ok {
					sess.Destroy()
				}
				handleUnauthorized(w, r, loginPath, reason)
				return
			}

			if sess, ok := SessionFromContext(r.Context()); ok {
				current := sess.User()
				profile := &appsession.User{ID: user.ID, Email: user.Email, Name: user.Name}
				if current != nil && current.ID == user.ID && profile.Name == "" {
					profile.Name = current.Name
				}
				sess.SetUser(profile)
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			ctx = requestctx.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok && user != nil
}

func requestToken(r *http.Request) string {
	if sess, ok := SessionFromContext(r.Context()); ok {
		if token := strings.TrimSpace(sess.APIToken()); token != "" {
			return token
		}
	}
	if token, ok := auth.ExtractBearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	for _, name := range []string{IDTokenCookie, "Authorization"} {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		val := strings.TrimSpace(c.Value)
		if token, ok := auth.ExtractBearerToken(val); ok {
			return token
		}
		if val != "" {
			return val
		}
	}
	return ""
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	if IsHTMXRequest(r.Context()) {
		if reason == ReasonTokenExpired {
			HXRefresh(w)
		} else {
			HXRedirect(w, loginPath)
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	target, err := url.Parse(loginPath)
	if err != nil {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	q := target.Query()
	if reason == ReasonTokenExpired {
		q.Set("reason", "expired")
	}
	if r.Method == http.MethodGet && r.URL != nil {
		q.Set("next", r.URL.RequestURI())
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}
