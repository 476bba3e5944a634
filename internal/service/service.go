// Package service holds the account and message rules that sit between the
// HTTP handlers and the repositories.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johndosdos/msglog/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	List(ctx context.Context, ownerID uuid.UUID, limit, offset uint64) ([]*model.Message, error)
	ListByType(ctx context.Context, ownerID uuid.UUID, t model.MessageType) ([]*model.Message, error)
	Search(ctx context.Context, ownerID uuid.UUID, term string) ([]*model.Message, error)
	GetByFile(ctx context.Context, name string) (*model.Message, error)
	UpdateCreatedAt(ctx context.Context, id int64, ownerID uuid.UUID, createdAt time.Time) error
	Delete(ctx context.Context, id int64, ownerID uuid.UUID) (*string, error)
	DeleteAll(ctx context.Context, ownerID uuid.UUID) (int64, []string, error)
}
