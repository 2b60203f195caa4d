package store

import (
	"context"

	"github.com/hrygo/quillmate/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateCompanionSession(ctx context.Context, create *CompanionSession) (*CompanionSession, error) {
	return s.driver.CreateCompanionSession(ctx, create)
}

func (s *Store) ListCompanionSessions(ctx context.Context, find *FindCompanionSession) ([]*CompanionSession, error) {
	return s.driver.ListCompanionSessions(ctx, find)
}

// GetCompanionSession returns nil when the row does not exist.
func (s *Store) GetCompanionSession(ctx context.Context, id string) (*CompanionSession, error) {
	list, err := s.driver.ListCompanionSessions(ctx, &FindCompanionSession{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateCompanionSession(ctx context.Context, update *UpdateCompanionSession) error {
	return s.driver.UpdateCompanionSession(ctx, update)
}

func (s *Store) ArchiveStaleSessions(ctx context.Context, archive *ArchiveStaleSessions) (int64, error) {
	return s.driver.ArchiveStaleSessions(ctx, archive)
}

func (s *Store) CreateSessionMemory(ctx context.Context, create *SessionMemory) (*SessionMemory, error) {
	return s.driver.CreateSessionMemory(ctx, create)
}

func (s *Store) ListSessionMemories(ctx context.Context, find *FindSessionMemory) ([]*SessionMemory, error) {
	return s.driver.ListSessionMemories(ctx, find)
}

func (s *Store) CreateGlobalMemory(ctx context.Context, create *GlobalMemory) (*GlobalMemory, error) {
	return s.driver.CreateGlobalMemory(ctx, create)
}

func (s *Store) ListGlobalMemories(ctx context.Context, find *FindGlobalMemory) ([]*GlobalMemory, error) {
	return s.driver.ListGlobalMemories(ctx, find)
}

func (s *Store) UpdateGlobalMemory(ctx context.Context, update *UpdateGlobalMemory) (*GlobalMemory, error) {
	return s.driver.UpdateGlobalMemory(ctx, update)
}

func (s *Store) DeleteGlobalMemory(ctx context.Context, delete *DeleteGlobalMemory) error {
	return s.driver.DeleteGlobalMemory(ctx, delete)
}

func (s *Store) CreateModelConfiguration(ctx context.Context, create *ModelConfiguration) (*ModelConfiguration, error) {
	return s.driver.CreateModelConfiguration(ctx, create)
}

func (s *Store) ListModelConfigurations(ctx context.Context, find *FindModelConfiguration) ([]*ModelConfiguration, error) {
	return s.driver.ListModelConfigurations(ctx, find)
}

// GetEnabledModelConfiguration returns nil when no configuration is enabled.
func (s *Store) GetEnabledModelConfiguration(ctx context.Context) (*ModelConfiguration, error) {
	enabled := true
	list, err := s.driver.ListModelConfigurations(ctx, &FindModelConfiguration{Enabled: &enabled})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetModelConfiguration returns nil when the row does not exist.
func (s *Store) GetModelConfiguration(ctx context.Context, id int32) (*ModelConfiguration, error) {
	list, err := s.driver.ListModelConfigurations(ctx, &FindModelConfiguration{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateModelConfiguration(ctx context.Context, update *ModelConfiguration) (*ModelConfiguration, error) {
	return s.driver.UpdateModelConfiguration(ctx, update)
}

func (s *Store) UpsertCharacter(ctx context.Context, upsert *Character) (*Character, error) {
	return s.driver.UpsertCharacter(ctx, upsert)
}

func (s *Store) GetCharacter(ctx context.Context, id string) (*Character, error) {
	return s.driver.GetCharacter(ctx, id)
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) SearchDocuments(ctx context.Context, search *SearchDocuments) ([]*DocumentMatch, error) {
	return s.driver.SearchDocuments(ctx, search)
}
