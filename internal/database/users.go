package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/johndosdos/msglog/internal/model"
)

const uniqueViolation = "23505"

// Users reads and writes the users table.
type Users struct {
	db DBTX
}

func NewUsers(db DBTX) *Users {
	return &Users{db: db}
}

// Create inserts user. A taken username yields model.ErrConflict.
func (r *Users) Create(ctx context.Context, user *model.User) (*model.User, error) {
	query, args, err := psql.
		Insert("users").
		Columns("id", "username", "password_hash").
		Values(user.ID, user.Username, user.PasswordHash).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetByUsername returns model.ErrNotFound when no such user exists.
func (r *Users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query, args, err := psql.
		Select("id", "username", "password_hash", "created_at").
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	user := &model.User{}
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
