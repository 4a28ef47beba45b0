package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/repositories"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
	maxUserNameLength = 100
)

var (
	// ErrUserInvalidInput indicates missing or malformed signup fields.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserExists indicates the email is already registered.
	ErrUserExists = errors.New("user: already exists")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user: not found")
	// ErrInvalidCredentials indicates a failed sign-in.
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	// ErrUserRepositoryUnavailable indicates the persistence layer is unavailable.
	ErrUserRepositoryUnavailable = errors.New("user: repository unavailable")
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(subject, email, name string) (string, time.Time, error)
}

// UserServiceDeps wires dependencies for the user service implementation.
type UserServiceDeps struct {
	Repository repositories.UserRepository
	Tokens     TokenIssuer
	Clock      func() time.Time
	IDGen      func() string
	// HashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
	HashCost int
}

type userService struct {
	repo     repositories.UserRepository
	tokens   TokenIssuer
	clock    func() time.Time
	newID    func() string
	hashCost int
}

var _ UserService = (*userService)(nil)

// NewUserService constructs a UserService.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Repository == nil {
		return nil, errors.New("user service: repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("user service: token issuer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return uuid.NewString() }
	}
	cost := deps.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &userService{
		repo:   deps.Repository,
		tokens: deps.Tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		hashCost: cost,
	}, nil
}

func (s *userService) SignUp(ctx context.Context, cmd SignUpCommand) (domain.User, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return domain.User{}, err
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", ErrUserInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxUserNameLength {
		return domain.User{}, fmt.Errorf("%w: name must be at most %d characters", ErrUserInvalidInput, maxUserNameLength)
	}
	if len(cmd.Password) < minPasswordLength || len(cmd.Password) > maxPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be %d to %d bytes", ErrUserInvalidInput, minPasswordLength, maxPasswordLength)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return domain.User{}, ErrUserExists
	} else if !repositories.IsNotFound(err) {
		return domain.User{}, s.mapRepoError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("user: hash password: %w", err)
	}
	now := s.clock()
	user := domain.User{
		ID:           s.newID(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		if repositories.IsConflict(err) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, s.mapRepoError(err)
	}
	return user, nil
}

func (s *userService) SignIn(ctx context.Context, cmd SignInCommand) (Session, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil || cmd.Password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, s.mapRepoError(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *userService) Get(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, fmt.Errorf("%w: id is required", ErrUserInvalidInput)
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, s.mapRepoError(err)
	}
	return user, nil
}

func (s *userService) mapRepoError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if repositories.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrUserRepositoryUnavailable, err)
	}
	return fmt.Errorf("user: repository error: %w", err)
}

func normaliseEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrUserInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is invalid", ErrUserInvalidInput)
	}
	return email, nil
}
