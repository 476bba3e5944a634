package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"math"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/johndosdos/msglog/internal/model"
	"github.com/johndosdos/msglog/internal/storage"
)

// PageSize is the number of messages per page returned by List.
const PageSize = 10

// sniffLen is how much of an upload is inspected to detect its type.
const sniffLen = 3072

// NewMessage is a message as submitted by a client. Type and CreatedAt are
// raw form values; CreatedAt may be empty.
type NewMessage struct {
	Type      string
	Text      string
	CreatedAt string
	File      *Upload
}

// Upload is an attachment. Size is the size the client declared, or -1
// when unknown.
type Upload struct {
	Name string
	Size int64
	Body io.Reader
}

type Messages struct {
	repo      MessageRepository
	store     storage.Backend
	policy    *bluemonday.Policy
	maxUpload int64
	now       func() time.Time
}

func NewMessages(repo MessageRepository, store storage.Backend, maxUpload int64) *Messages {
	return &Messages{
		repo:      repo,
		store:     store,
		policy:    bluemonday.StrictPolicy(),
		maxUpload: maxUpload,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TooLarge is the validation error for an attachment over the size limit.
func (s *Messages) TooLarge() error {
	return model.Invalid(fmt.Sprintf("File message can not be larger than %dMB", s.maxUpload/1_000_000))
}

// Create validates in and stores it for ownerID. File payloads are written
// to storage before the row is inserted and removed again if the insert
// fails.
func (s *Messages) Create(ctx context.Context, ownerID uuid.UUID, in NewMessage) (*model.Message, error) {
	if in.Type == "" {
		return nil, model.Invalid("Type is required")
	}

	msgType := model.MessageType(in.Type)
	if !msgType.Valid() {
		return nil, model.Invalid("Unknown message type")
	}

	createdAt, err := s.parseDate(in.CreatedAt)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		UserID:    ownerID,
		Type:      msgType,
		CreatedAt: createdAt,
	}

	if in.Text != "" || msgType == model.MessageText {
		text := s.stripTags(in.Text)
		msg.Text = &text
	}

	if msgType == model.MessageText {
		if in.File != nil {
			return nil, model.Invalid("Text message can not contain file")
		}
		return s.repo.Create(ctx, msg)
	}

	if in.File == nil {
		return nil, model.Invalid("File message must contain file")
	}
	if in.File.Size > s.maxUpload {
		return nil, s.TooLarge()
	}

	if err := s.saveFile(ctx, msg, in.File); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		s.removeFile(ctx, *msg.File)
		return nil, err
	}

	return created, nil
}

func (s *Messages) saveFile(ctx context.Context, msg *model.Message, up *Upload) error {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	name := storage.NewName(up.Name)
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), up.Body), s.maxUpload+1)

	written, err := s.store.Save(ctx, name, body)
	if err != nil {
		return err
	}
	if written > s.maxUpload {
		s.removeFile(ctx, name)
		return s.TooLarge()
	}

	contentType := mimetype.Detect(head).String()
	msg.File = &name
	msg.ContentType = &contentType
	msg.Size = &written
	if original := path.Base(strings.ReplaceAll(up.Name, "\\", "/")); up.Name != "" && original != "." && original != "/" {
		msg.FileName = &original
	}

	return nil
}

// List returns one page of ownerID's messages, newest first. Pages start at
// 1; smaller values are treated as 1.
func (s *Messages) List(ctx context.Context, ownerID uuid.UUID, page int) ([]*model.Message, error) {
	if page < 1 {
		page = 1
	}
	if uint64(page-1) > math.MaxInt64/PageSize {
		return []*model.Message{}, nil
	}

	return s.repo.List(ctx, ownerID, PageSize, uint64(page-1)*PageSize)
}

func (s *Messages) ListByType(ctx context.Context, ownerID uuid.UUID, rawType string) ([]*model.Message, error) {
	if rawType == "" {
		return nil, model.Invalid("Message type is required")
	}

	msgType := model.MessageType(rawType)
	if !msgType.Valid() {
		return nil, model.Invalid("Unknown message type")
	}

	return s.repo.ListByType(ctx, ownerID, msgType)
}

// Search matches term case-insensitively against the text of ownerID's text
// messages. An empty term matches nothing.
func (s *Messages) Search(ctx context.Context, ownerID uuid.UUID, term string) ([]*model.Message, error) {
	if term == "" {
		return []*model.Message{}, nil
	}

	return s.repo.Search(ctx, ownerID, term)
}

func (s *Messages) UpdateCreatedAt(ctx context.Context, id int64, ownerID uuid.UUID, rawDate string) error {
	if rawDate == "" {
		return model.Invalid("New date is required")
	}

	createdAt, err := s.parseDate(rawDate)
	if err != nil {
		return err
	}

	return s.repo.UpdateCreatedAt(ctx, id, ownerID, createdAt)
}

// Delete removes the message and, for file messages, its stored object.
func (s *Messages) Delete(ctx context.Context, id int64, ownerID uuid.UUID) error {
	file, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if file != nil {
		s.removeFile(ctx, *file)
	}

	return nil
}

// DeleteAll removes every message of ownerID and their stored objects.
func (s *Messages) DeleteAll(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	n, files, err := s.repo.DeleteAll(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		s.removeFile(ctx, f)
	}

	return n, nil
}

// stripTags removes markup but keeps the text otherwise as posted; the
// sanitizer's entity escaping is undone.
func (s *Messages) stripTags(raw string) string {
	return html.UnescapeString(s.policy.Sanitize(raw))
}

// parseDate accepts RFC 3339 timestamps or plain dates. Empty means now.
func (s *Messages) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return s.now(), nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, model.Invalid("Invalid date format")
}

func (s *Messages) removeFile(ctx context.Context, name string) {
	if err := s.store.Remove(ctx, name); err != nil {
		slog.WarnContext(ctx, "failed to remove stored file",
			slog.String("file", name),
			slog.Any("error", err))
	}
}
