package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/johndosdos/msglog/internal/auth"
	"github.com/johndosdos/msglog/internal/model"
)

// ErrMissingCredentials is returned by Register when the username or the
// password is empty. It matches model.ErrConflict.
var ErrMissingCredentials = fmt.Errorf("username and password are required: %w", model.ErrConflict)

type Users struct {
	repo UserRepository
	// dummyHash is compared against when the username is unknown.
	dummyHash string
}

func NewUsers(repo UserRepository) (*Users, error) {
	dummy, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}

	return &Users{repo: repo, dummyHash: dummy}, nil
}

// Register creates an account. A taken username yields model.ErrConflict.
func (s *Users) Register(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	hashedPw, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, &model.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashedPw,
	})
}

// Authenticate returns the user owning username when password matches.
// Unknown users and wrong passwords both yield model.ErrUnauthorized.
func (s *Users) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}

	ok, err := auth.CheckPasswordHash(password, hash)
	if err != nil {
		return nil, err
	}
	if !ok || user == nil {
		return nil, model.ErrUnauthorized
	}

	return user, nil
}
