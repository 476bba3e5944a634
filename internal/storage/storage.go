// Package storage persists message attachments. Objects are addressed by a
// server-generated name and never by the filename a client supplied.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Open when no object has the given name.
var ErrNotExist = errors.New("storage: object does not exist")

// ErrInvalidName is returned for names that are not plain object names.
var ErrInvalidName = errors.New("storage: invalid object name")

// Backend stores attachment payloads.
type Backend interface {
	// Save writes r under name and returns the number of bytes written.
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	// Open returns the payload stored under name, or ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Remove deletes the payload. A missing object is not an error.
	Remove(ctx context.Context, name string) error
}

var safeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)

// NewName returns a unique object name that keeps the extension of
// original when it is a plain alphanumeric one.
func NewName(original string) string {
	name := uuid.New().String()

	ext := path.Ext(path.Base(strings.ReplaceAll(original, `\`, "/")))
	if safeExt.MatchString(ext) {
		name += ext
	}

	return name
}

// ValidName reports whether name can be used as an object name: a single
// path element without separators or dot segments.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, c := range name {
		if c == '/' || c == '\\' || c == 0 {
			return false
		}
	}
	return true
}
