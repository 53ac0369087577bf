package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an individual entry of a conversation. It is created locally for every user
// submission and for every received or synthesized assistant reply, and is never mutated afterwards.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Timestamp time.Time
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant represents a reply of the remote assistant, or a locally synthesized notice.
	RoleAssistant Role = "assistant"
)

// NewMessage returns a message with a fresh random ID and the current time.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}
