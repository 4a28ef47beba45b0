package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"finitefield.org/taskboard/internal/domain"
	pfirestore "finitefield.org/taskboard/internal/platform/firestore"
	"finitefield.org/taskboard/internal/repositories"
)

const usersCollection = "users"

type userDocument struct {
	Email        string    `firestore:"email"`
	Name         string    `firestore:"name"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func (d userDocument) toDomain(id string) domain.User {
	return domain.User{
		ID:           id,
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// UserRepository stores console accounts in the users collection. Email
// uniqueness is enforced through an index document keyed by the lowercased address.
type UserRepository struct {
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository: firestore provider is required")
	}
	return &UserRepository{provider: provider}, nil
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func emailIndexID(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Insert writes the user and its email index atomically.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	email := emailIndexID(user.Email)
	userRef := client.Collection(usersCollection).Doc(user.ID)
	indexRef := client.Collection("userEmails").Doc(email)

	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(indexRef, map[string]any{"userId": user.ID}); err != nil {
			return err
		}
		return tx.Create(userRef, userDocument{
			Email:        email,
			Name:         user.Name,
			PasswordHash: user.PasswordHash,
			CreatedAt:    user.CreatedAt.UTC(),
			UpdatedAt:    user.UpdatedAt.UTC(),
		})
	})
	if err != nil {
		return pfirestore.WrapError("users.insert", err)
	}
	return nil
}

// FindByEmail queries by the lowercased email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.User{}, err
	}
	iter := client.Collection(usersCollection).Where("email", "==", emailIndexID(email)).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.User{}, pfirestore.NotFound("users.findByEmail", errors.New("user not found"))
	}
	if err != nil {
		return domain.User{}, pfirestore.WrapError("users.findByEmail", err)
	}
	return decodeUser(snap)
}

// FindByID loads a user document.
func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.User{}, err
	}
	snap, err := client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return domain.User{}, pfirestore.WrapError("users.find", err)
	}
	return decodeUser(snap)
}

func decodeUser(snap *firestore.DocumentSnapshot) (domain.User, error) {
	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.User{}, pfirestore.WrapError("users.decode", err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}
