package memory

import (
	"errors"
	"strings"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/event"
)

// ErrEmptyContent is returned when a global memory would have no content.
var ErrEmptyContent = errors.New("global memory content is empty")

// GlobalMemory is cross-session strategy text. Every mutation records a pending
// domain event; the owner publishes them after persisting and then clears them with PullEvents.
type GlobalMemory struct {
	ID        int64
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time

	pending []event.DomainEvent
}

// NewGlobalMemory creates an unsaved memory.
func NewGlobalMemory(content string) (*GlobalMemory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	now := time.Now()
	return &GlobalMemory{Content: content, CreatedAt: now, UpdatedAt: now}, nil
}

// MarkCreated records the created event once the memory has an id.
func (m *GlobalMemory) MarkCreated(id int64) {
	m.ID = id
	m.pending = append(m.pending, event.NewGlobalMemoryChanged(id, m.Content, event.MemoryCreated))
}

// Update replaces the content.
func (m *GlobalMemory) Update(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}
	m.Content = content
	m.UpdatedAt = time.Now()
	m.pending = append(m.pending, event.NewGlobalMemoryChanged(m.ID, content, event.MemoryUpdated))
	return nil
}

// MarkDeleted records the deleted event.
func (m *GlobalMemory) MarkDeleted() {
	m.pending = append(m.pending, event.NewGlobalMemoryChanged(m.ID, m.Content, event.MemoryDeleted))
}

// PullEvents returns the pending events and clears them.
func (m *GlobalMemory) PullEvents() []event.DomainEvent {
	events := m.pending
	m.pending = nil
	return events
}
