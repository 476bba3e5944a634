// Package model defines data structure.
package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageType is the kind of payload a message carries.
type MessageType string

const (
	MessageText MessageType = "text"
	MessageFile MessageType = "file"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageFile
}

// User is an account that owns messages.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
