// Package memory provides the chat-memory backends attached to a turn.
package memory

import (
	"context"
	"time"
)

// Message is one remembered chat message.
type Message struct {
	Role      string    `json:"role"` // "user" | "assistant" | "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Backend loads the conversation window for a session and records new turns.
type Backend interface {
	// Load returns up to limit messages, oldest first.
	Load(ctx context.Context, sessionID string, limit int) ([]Message, error)
	Save(ctx context.Context, sessionID string, msgs ...Message) error
}
