package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/johndosdos/msglog/internal/model"
)

var messageColumns = []string{
	"id", "user_id", "type", "text", "file", "file_name", "content_type", "size", "created_at",
}

// Messages reads and writes the messages table. Every read and write except
// GetByFile is scoped to a single owner.
type Messages struct {
	db DBTX
}

func NewMessages(db DBTX) *Messages {
	return &Messages{db: db}
}

// Create inserts msg and fills in its generated ID.
func (r *Messages) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	query, args, err := psql.
		Insert("messages").
		Columns("user_id", "type", "text", "file", "file_name", "content_type", "size", "created_at").
		Values(msg.UserID, string(msg.Type), msg.Text, msg.File, msg.FileName, msg.ContentType, msg.Size, msg.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&msg.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return msg, nil
}

// List returns one page of the owner's messages, newest first.
func (r *Messages) List(ctx context.Context, ownerID uuid.UUID, limit, offset uint64) ([]*model.Message, error) {
	return r.selectMessages(ctx, r.ownedBy(ownerID).Limit(limit).Offset(offset))
}

// ListByType returns all of the owner's messages of type t, newest first.
func (r *Messages) ListByType(ctx context.Context, ownerID uuid.UUID, t model.MessageType) ([]*model.Message, error) {
	return r.selectMessages(ctx, r.ownedBy(ownerID).Where(sq.Eq{"type": string(t)}))
}

// Search returns the owner's text messages whose text contains term,
// ignoring case.
func (r *Messages) Search(ctx context.Context, ownerID uuid.UUID, term string) ([]*model.Message, error) {
	q := r.ownedBy(ownerID).
		Where(sq.Eq{"type": string(model.MessageText)}).
		Where(sq.Expr(`text ILIKE ? ESCAPE '\'`, "%"+escapeLike(term)+"%"))

	return r.selectMessages(ctx, q)
}

// GetByFile returns the message that references the stored object name.
func (r *Messages) GetByFile(ctx context.Context, name string) (*model.Message, error) {
	query, args, err := psql.
		Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"file": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return msg, nil
}

// UpdateCreatedAt moves a message in time. Only the owner may do so; any
// other caller gets model.ErrNotFound.
func (r *Messages) UpdateCreatedAt(ctx context.Context, id int64, ownerID uuid.UUID, createdAt time.Time) error {
	query, args, err := psql.
		Update("messages").
		Set("created_at", createdAt).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}

	return nil
}

// Delete removes one of the owner's messages and returns the stored object
// name it referenced, if any.
func (r *Messages) Delete(ctx context.Context, id int64, ownerID uuid.UUID) (*string, error) {
	query, args, err := psql.
		Delete("messages").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": ownerID}).
		Suffix("RETURNING file").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var file *string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&file); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

// DeleteAll removes every message of the owner. It returns how many rows
// were removed and the stored object names they referenced.
func (r *Messages) DeleteAll(ctx context.Context, ownerID uuid.UUID) (int64, []string, error) {
	query, args, err := psql.
		Delete("messages").
		Where(sq.Eq{"user_id": ownerID}).
		Suffix("RETURNING file").
		ToSql()
	if err != nil {
		return 0, nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var (
		count int64
		files []string
	)
	for rows.Next() {
		var file *string
		if err := rows.Scan(&file); err != nil {
			return 0, nil, fmt.Errorf("scan: %w", err)
		}
		count++
		if file != nil {
			files = append(files, *file)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("db error: %w", err)
	}

	return count, files, nil
}

func (r *Messages) ownedBy(ownerID uuid.UUID) sq.SelectBuilder {
	return psql.
		Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("created_at DESC", "id DESC")
}

func (r *Messages) selectMessages(ctx context.Context, q sq.SelectBuilder) ([]*model.Message, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		msg model.Message
		typ string
	)
	err := row.Scan(&msg.ID, &msg.UserID, &typ, &msg.Text, &msg.File,
		&msg.FileName, &msg.ContentType, &msg.Size, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	msg.Type = model.MessageType(typ)

	return &msg, nil
}

// escapeLike escapes the LIKE metacharacters so term matches literally.
func escapeLike(term string) string {
	var b []byte
	for i := 0; i < len(term); i++ {
		switch c := term[i]; c {
		case '\\', '%', '_':
			b = append(b, '\\', c)
		default:
			b = append(b, c)
		}
	}
	return string(b)
}
