package session

import (
	"context"

	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/memory"
)

// Log exposes the session memory as the durable chat-memory log.
type Log struct {
	store *Store
}

func NewLog(s *Store) *Log {
	return &Log{store: s}
}

func (l *Log) AppendMessage(ctx context.Context, sessionID string, msg memory.Message) error {
	return l.store.Append(ctx, sessionID, MemoryItem{
		Type:      typeForRole(msg.Role),
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	})
}

// RecentMessages returns the latest items of a session, oldest first.
func (l *Log) RecentMessages(ctx context.Context, sessionID string, limit int) ([]memory.Message, error) {
	page, err := l.store.Page(ctx, sessionID, nil, limit)
	if err != nil {
		return nil, err
	}
	msgs := make([]memory.Message, len(page.Items))
	for i, item := range page.Items {
		msgs[len(msgs)-1-i] = memory.Message{
			Role:      roleForType(item.Type),
			Content:   item.Content,
			Timestamp: item.Timestamp,
		}
	}
	return msgs, nil
}

func typeForRole(role string) MemoryType {
	switch role {
	case llm.RoleAssistant:
		return MemoryAssistant
	case llm.RoleSystem:
		return MemorySystem
	default:
		return MemoryUser
	}
}

func roleForType(t MemoryType) string {
	switch t {
	case MemoryAssistant:
		return llm.RoleAssistant
	case MemorySystem:
		return llm.RoleSystem
	default:
		return llm.RoleUser
	}
}

var _ memory.Log = (*Log)(nil)
