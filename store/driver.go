package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// CompanionSession model related methods.
	CreateCompanionSession(ctx context.Context, create *CompanionSession) (*CompanionSession, error)
	ListCompanionSessions(ctx context.Context, find *FindCompanionSession) ([]*CompanionSession, error)
	UpdateCompanionSession(ctx context.Context, update *UpdateCompanionSession) error
	ArchiveStaleSessions(ctx context.Context, archive *ArchiveStaleSessions) (int64, error)

	// SessionMemory model related methods.
	CreateSessionMemory(ctx context.Context, create *SessionMemory) (*SessionMemory, error)
	ListSessionMemories(ctx context.Context, find *FindSessionMemory) ([]*SessionMemory, error)

	// GlobalMemory model related methods.
	CreateGlobalMemory(ctx context.Context, create *GlobalMemory) (*GlobalMemory, error)
	ListGlobalMemories(ctx context.Context, find *FindGlobalMemory) ([]*GlobalMemory, error)
	UpdateGlobalMemory(ctx context.Context, update *UpdateGlobalMemory) (*GlobalMemory, error)
	DeleteGlobalMemory(ctx context.Context, delete *DeleteGlobalMemory) error

	// ModelConfiguration model related methods.
	CreateModelConfiguration(ctx context.Context, create *ModelConfiguration) (*ModelConfiguration, error)
	ListModelConfigurations(ctx context.Context, find *FindModelConfiguration) ([]*ModelConfiguration, error)
	// UpdateModelConfiguration replaces the row. When Enabled is set every other row is disabled in the same transaction.
	UpdateModelConfiguration(ctx context.Context, update *ModelConfiguration) (*ModelConfiguration, error)

	// Character model related methods.
	UpsertCharacter(ctx context.Context, upsert *Character) (*Character, error)
	// GetCharacter returns nil when no character has the id.
	GetCharacter(ctx context.Context, id string) (*Character, error)

	// Document model related methods.
	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	// SearchDocuments performs semantic search using vector similarity.
	SearchDocuments(ctx context.Context, search *SearchDocuments) ([]*DocumentMatch, error)
}
