package companion

import (
	"context"
	"strings"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/session"
	aierrors "github.com/hrygo/quillmate/server/internal/errors"
)

const defaultListLimit = 20

// ListSessions lists active sessions of one owner type, or every session of a character.
func (s *Service) ListSessions(ctx context.Context, characterID string, isOwner bool, limit int) ([]*session.Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var (
		list []*session.Session
		err  error
	)
	if characterID != "" {
		list, err = s.sessions.FindByCharacterIDAndOwnerType(ctx, characterID, isOwner, limit)
	} else {
		list, err = s.sessions.FindActiveSessions(ctx, isOwner, limit)
	}
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to list sessions")
	}
	return list, nil
}

// GetSession returns one session visible to user.
func (s *Service) GetSession(ctx context.Context, id string, user User) (*session.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, aierrors.InvalidArgument("session id is required")
	}
	sess, err := s.sessions.Resolve(ctx, id)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to resolve session")
	}
	if sess == nil || (sess.IsOwner && !user.IsOwner) {
		return nil, aierrors.NotFound("session not found").WithContext("session_id", id)
	}
	return sess, nil
}

// ListMemories returns the transcript page before cursor, newest first.
func (s *Service) ListMemories(ctx context.Context, id string, cursor *time.Time, limit int, user User) (*session.Page, error) {
	if _, err := s.GetSession(ctx, id, user); err != nil {
		return nil, err
	}
	page, err := s.sessions.Page(ctx, id, cursor, limit)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to load memories")
	}
	return &page, nil
}

// ArchiveSession closes a session and drops its in-process memory window.
func (s *Service) ArchiveSession(ctx context.Context, id, reason string, user User) error {
	if _, err := s.GetSession(ctx, id, user); err != nil {
		return err
	}
	if reason == "" {
		reason = "closed"
	}
	if err := s.sessions.Archive(ctx, id, reason); err != nil {
		return toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to archive session")
	}
	if s.window != nil {
		s.window.Clear(id)
	}
	return nil
}

// SetSessionTools enables or disables tools on a session. Every name must be registered.
func (s *Service) SetSessionTools(ctx context.Context, id string, enabled bool, names []string, user User) (*session.Session, error) {
	if _, err := s.GetSession(ctx, id, user); err != nil {
		return nil, err
	}
	if err := s.tools.Validate(names); err != nil {
		return nil, toAIError(err, aierrors.ErrCodeInvalidArgument, "invalid tool name")
	}
	sess, err := s.sessions.SetTools(ctx, id, enabled, names)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to update session tools")
	}
	return sess, nil
}

// SetSessionMemory turns memory on or off for the following turns of a session.
func (s *Service) SetSessionMemory(ctx context.Context, id string, enabled bool, user User) (*session.Session, error) {
	if _, err := s.GetSession(ctx, id, user); err != nil {
		return nil, err
	}
	sess, err := s.sessions.SetMemory(ctx, id, enabled)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to update session memory")
	}
	return sess, nil
}

// ToolNames lists the registered tools.
func (s *Service) ToolNames() []string {
	return s.tools.Names()
}
