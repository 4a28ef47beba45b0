package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/platform/auth"
	"finitefield.org/taskboard/internal/platform/httpx"
	"finitefield.org/taskboard/internal/services"
)

const maxUserRequestBody = 4 * 1024

// UserHandlers exposes signup, sign-in and the current-user endpoint.
type UserHandlers struct {
	users  services.UserService
	tokens *auth.TokenManager
}

// NewUserHandlers constructs the user handlers. tokens guards /users/me.
func NewUserHandlers(users services.UserService, tokens *auth.TokenManager) *UserHandlers {
	return &UserHandlers{users: users, tokens: tokens}
}

// Routes registers the user endpoints.
func (h *UserHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/users", h.signUp)
	r.Post("/sessions", h.signIn)
	me := r
	if h.tokens != nil {
		me = r.With(h.tokens.RequireBearer())
	}
	me.Get("/users/me", h.currentUser)
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func (h *UserHandlers) signUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req signUpRequest
	if err := httpx.DecodeJSON(r, maxUserRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.BodyError(err))
		return
	}
	user, err := h.users.SignUp(ctx, services.SignUpCommand{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrUserExists):
			httpx.WriteError(ctx, w, httpx.NewError("user_exists", "User already exists", http.StatusBadRequest))
		default:
			writeUserServiceError(w, r, err)
		}
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *UserHandlers) signIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req signInRequest
	if err := httpx.DecodeJSON(r, maxUserRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.BodyError(err))
		return
	}
	session, err := h.users.SignIn(ctx, services.SignInCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "invalid email or password", http.StatusUnauthorized))
			return
		}
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toUserResponse(session.User),
	})
}

func (h *UserHandlers) currentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	user, err := h.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
			return
		}
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func writeUserServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrUserRepositoryUnavailable) {
		httpx.WriteError(r.Context(), w, httpx.NewError("user_service_unavailable", "user repository unavailable", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("internal_server_error", "failed to process user request", http.StatusInternalServerError))
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt.UTC().Format(timestampLayout),
	}
}
