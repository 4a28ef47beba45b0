package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/repositories"
)

// UserRepository stores console accounts in the users table.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *gorm.DB) (*UserRepository, error) {
	if db == nil {
		return nil, errors.New("user repository: gorm db is required")
	}
	return &UserRepository{db: db}, nil
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// Insert stores a new user; a duplicate email surfaces as a conflict.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	row := userModel{
		ID:           user.ID,
		Email:        strings.ToLower(user.Email),
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapError("users.insert", err)
	}
	return nil
}

// FindByEmail looks a user up by case-insensitive email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).Take(&row, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return domain.User{}, wrapError("users.findByEmail", err)
	}
	return row.toDomain(), nil
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).Take(&row, "id = ?", id).Error; err != nil {
		return domain.User{}, wrapError("users.find", err)
	}
	return row.toDomain(), nil
}
