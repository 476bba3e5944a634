package service

import (
	"context"
	"errors"
	"io"
	"regexp"

	"github.com/johndosdos/msglog/internal/model"
	"github.com/johndosdos/msglog/internal/storage"
)

// copySuffix matches a trailing " (2)" style marker after a file extension.
var copySuffix = regexp.MustCompile(`(\.\w+)\s*\(.+\)$`)

// Download is an opened attachment ready to be streamed.
type Download struct {
	Body        io.ReadCloser
	Name        string
	ContentType string
	Size        *int64
}

type FileLookup interface {
	GetByFile(ctx context.Context, name string) (*model.Message, error)
}

type Files struct {
	repo  FileLookup
	store storage.Backend
}

func NewFiles(repo FileLookup, store storage.Backend) *Files {
	return &Files{repo: repo, store: store}
}

// Open resolves a stored name to its attachment. Names no message refers
// to, and objects missing from storage, yield model.ErrNotFound.
func (s *Files) Open(ctx context.Context, name string) (*Download, error) {
	if !storage.ValidName(name) {
		return nil, model.ErrNotFound
	}

	msg, err := s.repo.GetByFile(ctx, name)
	if err != nil {
		return nil, err
	}

	body, err := s.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	contentType := "application/octet-stream"
	if msg.ContentType != nil && *msg.ContentType != "" {
		contentType = *msg.ContentType
	}

	return &Download{
		Body:        body,
		Name:        DownloadName(msg),
		ContentType: contentType,
		Size:        msg.Size,
	}, nil
}

// DownloadName picks the filename offered to the client: the uploaded name
// when recorded, else the message text without a trailing copy marker,
// else the stored name.
func DownloadName(msg *model.Message) string {
	if msg.FileName != nil && *msg.FileName != "" {
		return *msg.FileName
	}

	if msg.Text != nil && *msg.Text != "" {
		return copySuffix.ReplaceAllString(*msg.Text, "$1")
	}

	if msg.File != nil {
		return *msg.File
	}

	return ""
}
