package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ErrTokenExpired lets verifier fakes report expiry without the Firebase error type.
var ErrTokenExpired = errors.New("firebase token expired")

// FirebaseTokenVerifier is the subset of *firebaseauth.Client the authenticator uses.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator accepts Firebase ID tokens in place of API session tokens.
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator panics on a nil verifier.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate implements Authenticator.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}
	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err), errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	email := stringClaim(verified.Claims, "email")
	name := stringClaim(verified.Claims, "name", "displayName")
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return &User{ID: verified.UID, Email: email, Name: name, Token: token}, nil
}

// stringClaim returns the first non-blank string claim among keys.
func stringClaim(claims map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := claims[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
