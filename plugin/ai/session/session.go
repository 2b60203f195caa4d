// Package session manages companion session lifecycle and the recorded session memory.
// Guest sessions live in an ephemeral store with a fixed TTL; owner sessions are durable.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Id prefixes. A guest id always carries GuestPrefix and an owner id never does.
const (
	GuestPrefix = "guest_"
	OwnerPrefix = "owner_"
)

var (
	// ErrStoreUnavailable wraps connectivity failures of either store. Callers may retry.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionNotFound is returned by writes addressed to a session that does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidArgument is returned for blank ids or unknown modes.
	ErrInvalidArgument = errors.New("invalid session argument")
)

type Mode string

const (
	ModeConversation Mode = "CONVERSATION"
	ModeAgent        Mode = "AGENT"
)

// ParseMode accepts the mode names case-insensitively. Empty means conversation.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ModeConversation):
		return ModeConversation, nil
	case string(ModeAgent):
		return ModeAgent, nil
	default:
		return "", fmt.Errorf("%w: unknown session mode %q", ErrInvalidArgument, s)
	}
}

// NewID returns a fresh session id with the guest or owner prefix.
func NewID(isOwner bool) string {
	if isOwner {
		return OwnerPrefix + shortuuid.New()
	}
	return GuestPrefix + shortuuid.New()
}

// IsGuestID reports whether id names a guest session.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestPrefix)
}

// IsOwnerID reports whether id names an owner session.
func IsOwnerID(id string) bool {
	return strings.HasPrefix(id, OwnerPrefix)
}

// Session is one companion conversation.
type Session struct {
	ID            string    `json:"id"`
	CharacterID   string    `json:"character_id"`
	Mode          Mode      `json:"mode"`
	IsOwner       bool      `json:"is_owner"`
	ToolsEnabled  bool      `json:"tools_enabled"`
	ToolNames     []string  `json:"tool_names,omitempty"`
	MemoryEnabled bool      `json:"memory_enabled"`
	Archived      bool      `json:"archived"`
	ArchiveReason string    `json:"archive_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
}

// MemoryType is the author of a recorded memory item.
type MemoryType string

const (
	MemoryUser      MemoryType = "USER"
	MemoryAssistant MemoryType = "ASSISTANT"
	MemorySystem    MemoryType = "SYSTEM"
)

// MemoryItem is one recorded turn of a session.
type MemoryItem struct {
	SessionID string     `json:"session_id"`
	Type      MemoryType `json:"type"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
}

// Page is one page of memory items, newest first.
type Page struct {
	Items   []MemoryItem
	HasMore bool
}
