package store

type SessionMemoryType string

const (
	SessionMemoryTypeUser      SessionMemoryType = "USER"
	SessionMemoryTypeAssistant SessionMemoryType = "ASSISTANT"
	SessionMemoryTypeSystem    SessionMemoryType = "SYSTEM"
)

// SessionMemory is one recorded turn. Rows are append-only.
type SessionMemory struct {
	ID        int64
	SessionID string
	Type      SessionMemoryType
	Content   string
	// CreatedTs is unix milliseconds.
	CreatedTs int64
}

// FindSessionMemory selects rows newest first. BeforeTs is an exclusive cursor.
type FindSessionMemory struct {
	SessionID string
	BeforeTs  *int64
	Limit     int
}
