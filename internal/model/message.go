package model

import (
	"time"

	"github.com/google/uuid"
)

// Message holds information about a single message. For file messages, File
// is the stored object name and FileName the name the client uploaded it as.
type Message struct {
	ID          int64
	UserID      uuid.UUID
	Type        MessageType
	Text        *string
	File        *string
	FileName    *string
	ContentType *string
	Size        *int64
	CreatedAt   time.Time
}
