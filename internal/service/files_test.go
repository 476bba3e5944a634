package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/msglog/internal/model"
)

func strPtr(s string) *string { return &s }

func TestDownloadName(t *testing.T) {
	tests := []struct {
		name string
		msg  *model.Message
		want string
	}{
		{
			name: "uploaded name wins",
			msg:  &model.Message{FileName: strPtr("photo.jpg"), Text: strPtr("other.txt"), File: strPtr("x.jpg")},
			want: "photo.jpg",
		},
		{
			name: "copy marker stripped",
			msg:  &model.Message{Text: strPtr("report.pdf (2)"), File: strPtr("x.pdf")},
			want: "report.pdf",
		},
		{
			name: "text without marker",
			msg:  &model.Message{Text: strPtr("notes.txt"), File: strPtr("x.txt")},
			want: "notes.txt",
		},
		{
			name: "marker without extension kept",
			msg:  &model.Message{Text: strPtr("notes (2)"), File: strPtr("x")},
			want: "notes (2)",
		},
		{
			name: "stored name fallback",
			msg:  &model.Message{File: strPtr("x.bin")},
			want: "x.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadName(tt.msg))
		})
	}
}

func TestFilesOpen(t *testing.T) {
	msgs, repo, _ := newMessages(t)
	files := NewFiles(repo, msgs.store)

	msg, err := msgs.Create(context.Background(), uuid.New(), NewMessage{
		Type: "file",
		Text: "report.pdf (2)",
		File: &Upload{Name: "report.pdf", Size: 5, Body: strings.NewReader("hello")},
	})
	require.NoError(t, err)

	dl, err := files.Open(context.Background(), *msg.File)
	require.NoError(t, err)
	defer dl.Body.Close()

	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "report.pdf", dl.Name)
	assert.Equal(t, "text/plain; charset=utf-8", dl.ContentType)
	assert.Equal(t, int64(5), *dl.Size)

	_, err = files.Open(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = files.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Row present but object gone.
	require.NoError(t, msgs.store.Remove(context.Background(), *msg.File))
	_, err = files.Open(context.Background(), *msg.File)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFilesOpenLegacyContentType(t *testing.T) {
	msgs, repo, _ := newMessages(t)
	files := NewFiles(repo, msgs.store)

	name := "legacy.bin"
	_, err := msgs.store.Save(context.Background(), name, strings.NewReader("data"))
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), &model.Message{Type: model.MessageFile, File: &name, Text: strPtr("old.bin (1)")})
	require.NoError(t, err)

	dl, err := files.Open(context.Background(), name)
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "application/octet-stream", dl.ContentType)
	assert.Equal(t, "old.bin", dl.Name)
	assert.Nil(t, dl.Size)
}
