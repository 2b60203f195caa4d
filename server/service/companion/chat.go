package companion

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/advisor"
	"github.com/hrygo/quillmate/plugin/ai/client"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/session"
	"github.com/hrygo/quillmate/plugin/ai/timeout"
	aierrors "github.com/hrygo/quillmate/server/internal/errors"
	"github.com/hrygo/quillmate/internal/observability"
)

const (
	kindChat       = "chat"
	kindChatStream = "chat_stream"
)

// User is the caller of an operation.
type User struct {
	ID      string
	Name    string
	IsOwner bool
}

// ChatRequest is one chat turn.
type ChatRequest struct {
	SessionID   string
	CharacterID string
	Message     string
	// EnableAgent exposes tools on this turn even when the session has none enabled.
	EnableAgent bool
	User        User
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// StartSession creates a session for characterID. The character's client is built
// before the session exists, so an unknown character never leaves a session behind.
func (s *Service) StartSession(ctx context.Context, characterID, mode string, user User) (*session.Session, error) {
	if strings.TrimSpace(characterID) == "" {
		return nil, aierrors.InvalidArgument("character id is required")
	}
	m, err := session.ParseMode(mode)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeInvalidArgument, "invalid session mode")
	}
	if _, err := s.registry.GetOrCreate(ctx, characterID); err != nil {
		return nil, toAIError(err, aierrors.ErrCodeConfigAbsent, "failed to prepare character")
	}

	sess, err := s.sessions.Create(ctx, characterID, m, user.IsOwner)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to create session")
	}
	s.logger.Info("companion session started",
		observability.LogFieldSessionID, sess.ID,
		observability.LogFieldCharacterID, characterID,
		"is_owner", user.IsOwner,
		"mode", string(m))
	return sess, nil
}

// turn is a prepared chat turn.
type turn struct {
	client     *client.ChatClient
	session    *session.Session
	input      client.Turn
	perRequest []advisor.Advisor
	persistent bool
	started    time.Time
	log        *observability.RequestContext
}

func (s *Service) prepareTurn(ctx context.Context, req *ChatRequest) (*turn, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, aierrors.InvalidArgument("session id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, aierrors.InvalidArgument("message is required")
	}

	sess, err := s.sessions.Resolve(ctx, req.SessionID)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to resolve session")
	}
	// Guests cannot address owner sessions.
	if sess == nil || (sess.IsOwner && !req.User.IsOwner) {
		return nil, aierrors.NotFound("session not found").WithContext("session_id", req.SessionID)
	}
	if sess.Archived {
		return nil, aierrors.InvalidArgument("session is archived")
	}
	if req.CharacterID != "" && req.CharacterID != sess.CharacterID {
		return nil, aierrors.InvalidArgument("character does not match the session")
	}

	c, err := s.registry.GetOrCreate(ctx, sess.CharacterID)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeConfigAbsent, "failed to prepare character")
	}

	memorySpec := s.sessions.MemorySpecFor(sess)
	p := s.planner.BuildRequest(sess.ID, sess.CharacterID, c.Plan().Prompt, memorySpec, s.toolSpec(sess, req.EnableAgent))

	if err := s.sessions.Touch(ctx, sess.ID); err != nil {
		slog.Warn("failed to touch session", "session_id", sess.ID, "error", err)
	}

	return &turn{
		client:     c,
		session:    sess,
		input:      client.Turn{SessionID: sess.ID, UserName: req.User.Name, IsOwner: req.User.IsOwner, Message: req.Message},
		perRequest: s.advisors.BuildRequest(p),
		persistent: memorySpec.Type == plan.MemoryPersistent,
		started:    time.Now(),
		log:        observability.NewRequestContext(s.logger, req.User.ID, sess.ID, sess.CharacterID),
	}, nil
}

func (s *Service) toolSpec(sess *session.Session, enableAgent bool) plan.ToolSpec {
	if !sess.ToolsEnabled && !enableAgent && sess.Mode != session.ModeAgent {
		return plan.DisabledTools()
	}
	names := sess.ToolNames
	if len(names) == 0 {
		names = s.defaultTools
	}
	if len(names) == 0 {
		return plan.DisabledTools()
	}
	return plan.EnabledTools(names...)
}

// Chat runs one turn and returns the whole answer.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ChatTimeout)
	defer cancel()

	s.metrics.RecordRequest(kindChat)
	t, err := s.prepareTurn(ctx, req)
	if err != nil {
		s.metrics.RecordFailure(kindChat)
		return nil, err
	}

	t.log.Info("chat turn started", slog.Int(observability.LogFieldMessageLen, len(req.Message)))
	answer, err := t.client.Call(ctx, t.input, t.perRequest)
	s.metrics.RecordDuration(kindChat, time.Since(t.started))
	if err != nil {
		s.metrics.RecordFailure(kindChat)
		t.log.Error("chat turn failed", err)
		return nil, toAIError(err, aierrors.ErrCodeAgentExecutionFailed, "chat generation failed")
	}

	s.record(ctx, t, answer)
	t.log.Info("chat turn completed", slog.Int64(observability.LogFieldDuration, t.log.DurationMs()))
	return &ChatResponse{SessionID: t.session.ID, Content: answer}, nil
}

// ChatStream runs one turn and yields answer chunks. An error is the terminal element.
// Breaking out of the loop cancels generation and records nothing.
func (s *Service) ChatStream(ctx context.Context, req *ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, timeout.StreamTimeout)
		defer cancel()

		s.metrics.RecordRequest(kindChatStream)
		t, err := s.prepareTurn(ctx, req)
		if err != nil {
			s.metrics.RecordFailure(kindChatStream)
			yield("", err)
			return
		}

		t.log.Info("chat stream started", slog.Int(observability.LogFieldMessageLen, len(req.Message)))
		var sb strings.Builder
		for chunk, err := range t.client.Stream(ctx, t.input, t.perRequest) {
			if err != nil {
				s.metrics.RecordFailure(kindChatStream)
				t.log.Error("chat stream failed", err)
				yield("", toAIError(err, aierrors.ErrCodeAgentExecutionFailed, "chat generation failed"))
				return
			}
			sb.WriteString(chunk)
			s.metrics.RecordStreamChunk()
			if !yield(chunk, nil) {
				t.log.Debug("chat stream abandoned by caller")
				return
			}
		}

		s.metrics.RecordDuration(kindChatStream, time.Since(t.started))
		s.record(ctx, t, sb.String())
		t.log.Info("chat stream completed", slog.Int64(observability.LogFieldDuration, t.log.DurationMs()))
	}
}

// record appends the turn to the session transcript unless the durable memory
// advisor already wrote it, then refreshes the session so guest TTLs slide with activity.
func (s *Service) record(ctx context.Context, t *turn, answer string) {
	defer func() {
		if err := s.sessions.Refresh(ctx, t.session.ID); err != nil {
			t.log.Warn("failed to refresh session", slog.String("error", err.Error()))
		}
	}()
	if t.persistent {
		return
	}
	answeredAt := time.Now()
	if answeredAt.UnixMilli() <= t.started.UnixMilli() {
		answeredAt = t.started.Add(time.Millisecond)
	}
	items := []session.MemoryItem{
		{Type: session.MemoryUser, Content: t.input.Message, Timestamp: t.started},
		{Type: session.MemoryAssistant, Content: answer, Timestamp: answeredAt},
	}
	for _, item := range items {
		if err := s.sessions.Append(ctx, t.session.ID, item); err != nil {
			t.log.Warn("failed to record transcript", slog.String("error", err.Error()))
			return
		}
	}
}
