package blob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/trackspend/expense-tracker/internal"
	"github.com/trackspend/expense-tracker/internal/auth"
	"github.com/trackspend/expense-tracker/internal/storage"
)

const documentKey = "users"

// UserRepository implements auth.UserRepository on the document store.
// All accounts share the single users JSON document.
type UserRepository struct {
	store storage.DocStore
	locks *storage.KeyLock
}

func NewUserRepository(store storage.DocStore, locks *storage.KeyLock) auth.UserRepository {
	return &UserRepository{store: store, locks: locks}
}

func (r *UserRepository) readAll(ctx context.Context) ([]*auth.User, error) {
	data, err := r.store.Get(ctx, documentKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return []*auth.User{}, nil
		}
		return nil, err
	}

	var users []*auth.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("malformed users document: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	release := r.locks.Acquire(documentKey)
	defer release()

	users, err := r.readAll(ctx)
	if err != nil {
		return err
	}

	for _, existing := range users {
		if existing.Email == user.Email {
			return internal.ErrUserExists
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	users = append(users, user)

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return r.store.Put(ctx, documentKey, data)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	users, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, internal.ErrUserNotFound
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	users, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, internal.ErrUserNotFound
}
