package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/cache"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/store"
)

const (
	// DefaultGuestTTL is how long a guest session lives after its last completed turn or save.
	DefaultGuestTTL = 30 * time.Minute
	// DefaultPageMax bounds a single memory page.
	DefaultPageMax = 50

	cachePrefix = "session:"
	// maxGuestMemories bounds the memory kept inside one guest record.
	maxGuestMemories = 500
)

// Repository is the durable persistence used by Store.
type Repository interface {
	CreateCompanionSession(ctx context.Context, create *store.CompanionSession) (*store.CompanionSession, error)
	ListCompanionSessions(ctx context.Context, find *store.FindCompanionSession) ([]*store.CompanionSession, error)
	GetCompanionSession(ctx context.Context, id string) (*store.CompanionSession, error)
	UpdateCompanionSession(ctx context.Context, update *store.UpdateCompanionSession) error
	ArchiveStaleSessions(ctx context.Context, archive *store.ArchiveStaleSessions) (int64, error)
	CreateSessionMemory(ctx context.Context, create *store.SessionMemory) (*store.SessionMemory, error)
	ListSessionMemories(ctx context.Context, find *store.FindSessionMemory) ([]*store.SessionMemory, error)
}

type Config struct {
	GuestTTL   time.Duration
	PageMax    int
	WindowSize int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Store resolves, creates and updates sessions. Guest sessions are authoritative in the
// ephemeral store and mirrored to a durable row for listing; owner sessions are durable only.
type Store struct {
	ephemeral cache.EphemeralStore
	durable   Repository
	guestTTL  time.Duration
	pageMax   int
	window    int
	now       func() time.Time
}

func NewStore(ephemeral cache.EphemeralStore, durable Repository, cfg Config) *Store {
	if cfg.GuestTTL <= 0 {
		cfg.GuestTTL = DefaultGuestTTL
	}
	if cfg.PageMax <= 0 {
		cfg.PageMax = DefaultPageMax
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Store{
		ephemeral: ephemeral,
		durable:   durable,
		guestTTL:  cfg.GuestTTL,
		pageMax:   cfg.PageMax,
		window:    cfg.WindowSize,
		now:       cfg.Clock,
	}
}

// GuestTTL returns the configured guest lifetime.
func (s *Store) GuestTTL() time.Duration {
	return s.guestTTL
}

// Resolve returns the session, or nil when it does not exist (or a guest session expired).
// Reading never extends a guest TTL. Connectivity failures return ErrStoreUnavailable.
func (s *Store) Resolve(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: blank session id", ErrInvalidArgument)
	}

	switch {
	case IsGuestID(id):
		rec, err := s.loadGuest(ctx, id)
		if err != nil || rec == nil {
			return nil, err
		}
		return &rec.Session, nil
	case IsOwnerID(id):
		row, err := s.durable.GetCompanionSession(ctx, id)
		if err != nil {
			return nil, unavailable(err)
		}
		if row == nil {
			return nil, nil
		}
		return fromRow(row), nil
	default:
		return nil, nil
	}
}

// Create starts a new session. Owner sessions never expire; guest sessions expire after the guest TTL.
func (s *Store) Create(ctx context.Context, characterID string, mode Mode, isOwner bool) (*Session, error) {
	if strings.TrimSpace(characterID) == "" {
		return nil, fmt.Errorf("%w: blank character id", ErrInvalidArgument)
	}
	if mode == "" {
		mode = ModeConversation
	}

	now := s.now()
	sess := &Session{
		ID:            NewID(isOwner),
		CharacterID:   characterID,
		Mode:          mode,
		IsOwner:       isOwner,
		MemoryEnabled: true,
		CreatedAt:     now,
		LastActiveAt:  now,
	}

	if isOwner {
		if _, err := s.durable.CreateCompanionSession(ctx, toRow(sess)); err != nil {
			return nil, unavailable(err)
		}
		return sess, nil
	}

	if err := s.saveGuest(ctx, &guestRecord{Session: *sess}); err != nil {
		return nil, err
	}
	if _, err := s.durable.CreateCompanionSession(ctx, toRow(sess)); err != nil {
		slog.Warn("failed to mirror guest session", "session_id", sess.ID, "error", err)
	}
	return sess, nil
}

// Append records one memory item. Guest TTLs are kept.
func (s *Store) Append(ctx context.Context, id string, item MemoryItem) error {
	item.SessionID = id
	if item.Timestamp.IsZero() {
		item.Timestamp = s.now()
	}

	if IsGuestID(id) {
		return s.updateGuest(ctx, id, func(rec *guestRecord) {
			rec.Memories = append(rec.Memories, item)
			if len(rec.Memories) > maxGuestMemories {
				rec.Memories = rec.Memories[len(rec.Memories)-maxGuestMemories:]
			}
		})
	}

	if _, err := s.durable.CreateSessionMemory(ctx, &store.SessionMemory{
		SessionID: id,
		Type:      store.SessionMemoryType(item.Type),
		Content:   item.Content,
		CreatedTs: item.Timestamp.UnixMilli(),
	}); err != nil {
		return unavailable(err)
	}
	return nil
}

// Page returns memory items strictly older than cursor, newest first. A nil cursor
// starts from the most recent item. limit is clamped to the page maximum.
func (s *Store) Page(ctx context.Context, id string, cursor *time.Time, limit int) (Page, error) {
	if limit <= 0 || limit > s.pageMax {
		limit = s.pageMax
	}

	var items []MemoryItem
	if IsGuestID(id) {
		rec, err := s.loadGuest(ctx, id)
		if err != nil {
			return Page{}, err
		}
		if rec == nil {
			return Page{}, ErrSessionNotFound
		}
		items = pageGuest(rec.Memories, cursor, limit+1)
	} else {
		find := &store.FindSessionMemory{SessionID: id, Limit: limit + 1}
		if cursor != nil {
			before := cursor.UnixMilli()
			find.BeforeTs = &before
		}
		rows, err := s.durable.ListSessionMemories(ctx, find)
		if err != nil {
			return Page{}, unavailable(err)
		}
		items = make([]MemoryItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, MemoryItem{
				SessionID: row.SessionID,
				Type:      MemoryType(row.Type),
				Content:   row.Content,
				Timestamp: time.UnixMilli(row.CreatedTs),
			})
		}
	}

	page := Page{Items: items}
	if len(items) > limit {
		page.Items, page.HasMore = items[:limit], true
	}
	return page, nil
}

func pageGuest(memories []MemoryItem, cursor *time.Time, limit int) []MemoryItem {
	out := make([]MemoryItem, 0, limit)
	for i := len(memories) - 1; i >= 0 && len(out) < limit; i-- {
		m := memories[i]
		if cursor != nil && m.Timestamp.UnixMilli() >= cursor.UnixMilli() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Archive closes a session. Archived guest sessions are removed from the ephemeral store.
func (s *Store) Archive(ctx context.Context, id, reason string) error {
	archived := true
	update := &store.UpdateCompanionSession{ID: id, Archived: &archived, ArchiveReason: &reason}

	if IsGuestID(id) {
		rec, err := s.loadGuest(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrSessionNotFound
		}
		if err := s.ephemeral.Delete(ctx, s.key(id)); err != nil {
			return unavailable(err)
		}
		if err := s.durable.UpdateCompanionSession(ctx, update); err != nil {
			slog.Warn("failed to archive guest mirror", "session_id", id, "error", err)
		}
		return nil
	}

	sess, err := s.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if err := s.durable.UpdateCompanionSession(ctx, update); err != nil {
		return unavailable(err)
	}
	return nil
}

// Touch bumps the last activity. It does not extend a guest TTL, so the guest
// mirror row keeps the activity of the last TTL restart for the sweeper.
func (s *Store) Touch(ctx context.Context, id string) error {
	now := s.now()

	if IsGuestID(id) {
		return s.updateGuest(ctx, id, func(rec *guestRecord) {
			rec.Session.LastActiveAt = now
		})
	}

	ts := now.UnixMilli()
	if err := s.durable.UpdateCompanionSession(ctx, &store.UpdateCompanionSession{ID: id, LastActiveTs: &ts}); err != nil {
		return unavailable(err)
	}
	return nil
}

// Refresh records a completed turn. Guest sessions get a fresh TTL from now;
// owner sessions only bump their activity.
func (s *Store) Refresh(ctx context.Context, id string) error {
	if !IsGuestID(id) {
		return s.Touch(ctx, id)
	}

	rec, err := s.loadGuest(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrSessionNotFound
	}
	rec.Session.LastActiveAt = s.now()
	if err := s.saveGuest(ctx, rec); err != nil {
		return err
	}
	ts := rec.Session.LastActiveAt.UnixMilli()
	if err := s.durable.UpdateCompanionSession(ctx, &store.UpdateCompanionSession{ID: id, LastActiveTs: &ts}); err != nil {
		slog.Warn("failed to refresh guest mirror", "session_id", id, "error", err)
	}
	return nil
}

// Save writes the session attributes. Saving a guest session counts as activity
// and restarts its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if IsGuestID(sess.ID) {
		rec, err := s.loadGuest(ctx, sess.ID)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrSessionNotFound
		}
		sess.LastActiveAt = s.now()
		rec.Session = *sess
		if err := s.saveGuest(ctx, rec); err != nil {
			return err
		}
		if err := s.durable.UpdateCompanionSession(ctx, toUpdate(sess)); err != nil {
			slog.Warn("failed to save guest mirror", "session_id", sess.ID, "error", err)
		}
		return nil
	}

	if err := s.durable.UpdateCompanionSession(ctx, toUpdate(sess)); err != nil {
		return unavailable(err)
	}
	return nil
}

// SetTools enables or disables tools on a session. Names must already be validated.
func (s *Store) SetTools(ctx context.Context, id string, enabled bool, names []string) (*Session, error) {
	sess, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	sess.ToolsEnabled = enabled
	sess.ToolNames = slices.Clone(names)

	if IsGuestID(id) {
		if err := s.updateGuest(ctx, id, func(rec *guestRecord) {
			rec.Session.ToolsEnabled = sess.ToolsEnabled
			rec.Session.ToolNames = sess.ToolNames
		}); err != nil {
			return nil, err
		}
		return sess, nil
	}

	if err := s.durable.UpdateCompanionSession(ctx, &store.UpdateCompanionSession{
		ID:           id,
		ToolsEnabled: &sess.ToolsEnabled,
		ToolNames:    &sess.ToolNames,
	}); err != nil {
		return nil, unavailable(err)
	}
	return sess, nil
}

// SetMemory turns memory on or off for later turns. Recorded items are kept.
func (s *Store) SetMemory(ctx context.Context, id string, enabled bool) (*Session, error) {
	sess, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	sess.MemoryEnabled = enabled

	if IsGuestID(id) {
		if err := s.updateGuest(ctx, id, func(rec *guestRecord) {
			rec.Session.MemoryEnabled = enabled
		}); err != nil {
			return nil, err
		}
		return sess, nil
	}

	if err := s.durable.UpdateCompanionSession(ctx, &store.UpdateCompanionSession{
		ID:            id,
		MemoryEnabled: &enabled,
	}); err != nil {
		return nil, unavailable(err)
	}
	return sess, nil
}

// FindActiveSessions lists non-archived durable rows of one owner type, most recent first.
func (s *Store) FindActiveSessions(ctx context.Context, isOwner bool, limit int) ([]*Session, error) {
	archived := false
	return s.list(ctx, &store.FindCompanionSession{IsOwner: &isOwner, Archived: &archived, Limit: limit})
}

// FindByCharacterIDAndOwnerType lists durable rows of one character and owner type.
func (s *Store) FindByCharacterIDAndOwnerType(ctx context.Context, characterID string, isOwner bool, limit int) ([]*Session, error) {
	return s.list(ctx, &store.FindCompanionSession{CharacterID: &characterID, IsOwner: &isOwner, Limit: limit})
}

func (s *Store) list(ctx context.Context, find *store.FindCompanionSession) ([]*Session, error) {
	rows, err := s.durable.ListCompanionSessions(ctx, find)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]*Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// MemorySpecFor maps a session onto the memory attached to its turns.
func (s *Store) MemorySpecFor(sess *Session) plan.MemorySpec {
	switch {
	case !sess.MemoryEnabled:
		return plan.DisabledMemory()
	case sess.IsOwner:
		return plan.PersistentMemory(sess.ID, s.window)
	default:
		return plan.SessionOnlyMemory(s.window)
	}
}

func (s *Store) key(id string) string {
	return cachePrefix + id
}

// guestRecord is the ephemeral value of a guest session.
type guestRecord struct {
	Session  Session      `json:"session"`
	Memories []MemoryItem `json:"memories"`
}

// loadGuest returns nil when the record is absent or expired.
func (s *Store) loadGuest(ctx context.Context, id string) (*guestRecord, error) {
	data, err := s.ephemeral.Get(ctx, s.key(id))
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	var rec guestRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("dropping unreadable guest session", "session_id", id, "error", err)
		return nil, nil
	}
	return &rec, nil
}

// saveGuest writes the record with a fresh TTL.
func (s *Store) saveGuest(ctx context.Context, rec *guestRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal guest session: %w", err)
	}
	if err := s.ephemeral.Set(ctx, s.key(rec.Session.ID), data, s.guestTTL); err != nil {
		return unavailable(err)
	}
	return nil
}

// updateGuest rewrites the record keeping its remaining TTL.
func (s *Store) updateGuest(ctx context.Context, id string, mutate func(*guestRecord)) error {
	rec, err := s.loadGuest(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrSessionNotFound
	}
	mutate(rec)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal guest session: %w", err)
	}
	err = s.ephemeral.Update(ctx, s.key(id), data)
	if errors.Is(err, cache.ErrMiss) {
		return ErrSessionNotFound
	}
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func toRow(sess *Session) *store.CompanionSession {
	return &store.CompanionSession{
		ID:            sess.ID,
		CharacterID:   sess.CharacterID,
		Mode:          string(sess.Mode),
		IsOwner:       sess.IsOwner,
		ToolsEnabled:  sess.ToolsEnabled,
		ToolNames:     sess.ToolNames,
		MemoryEnabled: sess.MemoryEnabled,
		Archived:      sess.Archived,
		ArchiveReason: sess.ArchiveReason,
		CreatedTs:     sess.CreatedAt.UnixMilli(),
		LastActiveTs:  sess.LastActiveAt.UnixMilli(),
	}
}

func toUpdate(sess *Session) *store.UpdateCompanionSession {
	lastActive := sess.LastActiveAt.UnixMilli()
	return &store.UpdateCompanionSession{
		ID:            sess.ID,
		LastActiveTs:  &lastActive,
		ToolsEnabled:  &sess.ToolsEnabled,
		ToolNames:     &sess.ToolNames,
		MemoryEnabled: &sess.MemoryEnabled,
		Archived:      &sess.Archived,
		ArchiveReason: &sess.ArchiveReason,
	}
}

func fromRow(row *store.CompanionSession) *Session {
	return &Session{
		ID:            row.ID,
		CharacterID:   row.CharacterID,
		Mode:          Mode(row.Mode),
		IsOwner:       row.IsOwner,
		ToolsEnabled:  row.ToolsEnabled,
		ToolNames:     row.ToolNames,
		MemoryEnabled: row.MemoryEnabled,
		Archived:      row.Archived,
		ArchiveReason: row.ArchiveReason,
		CreatedAt:     time.UnixMilli(row.CreatedTs),
		LastActiveAt:  time.UnixMilli(row.LastActiveTs),
	}
}
