// Package plan builds the configuration plans that describe how a chat client is
// constructed (InitPlan, once per character) and what is attached to one turn
// (RequestPlan, every turn).
package plan

import (
	"slices"
	"strings"

	"github.com/hrygo/quillmate/plugin/ai/prompt"
)

// PromptSpec carries the assembled prompt of a character.
// SeparatedMode selects one advisor per concern instead of a single combined advisor.
type PromptSpec struct {
	Assembled      prompt.Assembled
	GlobalMemories []string
	SeparatedMode  bool
}

func (p PromptSpec) IsEmpty() bool {
	return p.Assembled.IsEmpty()
}

// RagSpec configures retrieval augmentation. The zero value is disabled.
type RagSpec struct {
	Enabled    bool
	TopK       int
	Threshold  float64
	Collection string
}

// DisabledRag returns the zero RagSpec.
func DisabledRag() RagSpec {
	return RagSpec{}
}

func (r RagSpec) IsValid() bool {
	return r.Enabled && r.TopK > 0 && strings.TrimSpace(r.Collection) != ""
}

type MemoryType int

const (
	MemoryDisabled MemoryType = iota
	// MemorySessionOnly keeps a sliding window in process for the lifetime of the session.
	MemorySessionOnly
	// MemoryPersistent reads and writes the durable session log.
	MemoryPersistent
)

func (t MemoryType) String() string {
	switch t {
	case MemorySessionOnly:
		return "SESSION_ONLY"
	case MemoryPersistent:
		return "PERSISTENT"
	default:
		return "DISABLED"
	}
}

// MemorySpec is one of disabled, session-only(window) or persistent(conversationID, window).
// Build it with DisabledMemory, SessionOnlyMemory or PersistentMemory.
type MemorySpec struct {
	Type           MemoryType
	ConversationID string
	WindowSize     int
}

func DisabledMemory() MemorySpec {
	return MemorySpec{Type: MemoryDisabled}
}

func SessionOnlyMemory(windowSize int) MemorySpec {
	return MemorySpec{Type: MemorySessionOnly, WindowSize: windowSize}
}

func PersistentMemory(conversationID string, windowSize int) MemorySpec {
	return MemorySpec{Type: MemoryPersistent, ConversationID: conversationID, WindowSize: windowSize}
}

// IsValid is false for the disabled spec and for a persistent spec without a conversation id.
func (m MemorySpec) IsValid() bool {
	switch m.Type {
	case MemorySessionOnly:
		return true
	case MemoryPersistent:
		return strings.TrimSpace(m.ConversationID) != ""
	default:
		return false
	}
}

// ToolSpec lists the tools exposed on a turn.
type ToolSpec struct {
	Enabled bool
	Names   []string
}

func DisabledTools() ToolSpec {
	return ToolSpec{}
}

func EnabledTools(names ...string) ToolSpec {
	return ToolSpec{Enabled: true, Names: slices.Clone(names)}
}

func (t ToolSpec) IsValid() bool {
	return t.Enabled && len(t.Names) > 0
}
