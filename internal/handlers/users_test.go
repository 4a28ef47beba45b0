package handlers

import (
	"net/http"
	"testing"
)

func TestSignUpSignInAndCurrentUser(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/users", signUpRequest{Email: "Ada@Example.com", Password: "correct-horse", Name: "Ada"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	user := decodeBody[userResponse](t, rec)
	if user.ID == "" || user.Email != "ada@example.com" || user.Name != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}

	rec = srv.do(t, http.MethodPost, "/api/users", signUpRequest{Email: "ada@example.com", Password: "another-pass", Name: "Ada"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: expected 400, got %d", rec.Code)
	}
	if body := decodeBody[map[string]any](t, rec); body["message"] != "User already exists" {
		t.Fatalf("unexpected duplicate message %v", body["message"])
	}

	rec = srv.do(t, http.MethodPost, "/api/sessions", signInRequest{Email: "ada@example.com", Password: "wrong-password"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPost, "/api/sessions", signInRequest{Email: "ada@example.com", Password: "correct-horse"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	session := decodeBody[sessionResponse](t, rec)
	if session.Token == "" || session.User.ID != user.ID {
		t.Fatalf("unexpected session %+v", session)
	}

	rec = srv.do(t, http.MethodGet, "/api/users/me", nil, http.Header{"Authorization": {"Bearer " + session.Token}})
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if me := decodeBody[userResponse](t, rec); me.ID != user.ID {
		t.Fatalf("unexpected current user %+v", me)
	}
}

func TestCurrentUserRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/users/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodGet, "/api/users/me", nil, http.Header{"Authorization": {"Bearer not-a-jwt"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with malformed token, got %d", rec.Code)
	}
}

func TestCurrentUserUnknownSubject(t *testing.T) {
	srv := newTestServer(t)
	token, _, err := srv.tokens.Issue("ghost", "ghost@example.com", "Ghost")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := srv.do(t, http.MethodGet, "/api/users/me", nil, http.Header{"Authorization": {"Bearer " + token}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown subject, got %d", rec.Code)
	}
}

func TestSignUpValidation(t *testing.T) {
	srv := newTestServer(t)

	for _, req := range []signUpRequest{
		{Email: "not-an-email", Password: "long-enough", Name: "A"},
		{Email: "a@example.com", Password: "short", Name: "A"},
	} {
		rec := srv.do(t, http.MethodPost, "/api/users", req, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%+v: expected 400, got %d", req, rec.Code)
		}
	}
}
