package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/quillmate/plugin/ai/session"
	"github.com/hrygo/quillmate/server/service/companion"
)

type createSessionRequest struct {
	CharacterID string `json:"character_id"`
	Mode        string `json:"mode"`
}

func (s *APIV1Service) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	sess, err := s.Companion.StartSession(c.Request().Context(), req.CharacterID, req.Mode, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// ListSessions lists owner sessions, or guest sessions with ?guest=true.
func (s *APIV1Service) ListSessions(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	isOwner := c.QueryParam("guest") != "true"
	list, err := s.Companion.ListSessions(c.Request().Context(), c.QueryParam("character_id"), isOwner, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": list})
}

func (s *APIV1Service) GetSession(c echo.Context) error {
	sess, err := s.Companion.GetSession(c.Request().Context(), c.Param("id"), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

type memoryPage struct {
	Items   []session.MemoryItem `json:"items"`
	HasMore bool                 `json:"has_more"`
	// NextCursor is the unix millisecond timestamp to pass as cursor for the next page.
	NextCursor int64 `json:"next_cursor,omitempty"`
}

// ListMemories pages the transcript newest first. cursor is a unix millisecond timestamp.
func (s *APIV1Service) ListMemories(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	var cursor *time.Time
	if c.QueryParam("cursor") != "" {
		ms, err := queryInt(c, "cursor")
		if err != nil {
			return respondError(c, err)
		}
		t := time.UnixMilli(int64(ms))
		cursor = &t
	}

	page, err := s.Companion.ListMemories(c.Request().Context(), c.Param("id"), cursor, limit, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	resp := memoryPage{Items: page.Items, HasMore: page.HasMore}
	if resp.Items == nil {
		resp.Items = []session.MemoryItem{}
	}
	if page.HasMore && len(page.Items) > 0 {
		resp.NextCursor = page.Items[len(page.Items)-1].Timestamp.UnixMilli()
	}
	return c.JSON(http.StatusOK, resp)
}

type archiveSessionRequest struct {
	Reason string `json:"reason"`
}

func (s *APIV1Service) ArchiveSession(c echo.Context) error {
	var req archiveSessionRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := s.Companion.ArchiveSession(c.Request().Context(), c.Param("id"), req.Reason, currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type setToolsRequest struct {
	Enabled bool     `json:"enabled"`
	Names   []string `json:"names"`
}

func (s *APIV1Service) SetSessionTools(c echo.Context) error {
	var req setToolsRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	sess, err := s.Companion.SetSessionTools(c.Request().Context(), c.Param("id"), req.Enabled, req.Names, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

type setMemoryRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *APIV1Service) SetSessionMemory(c echo.Context) error {
	var req setMemoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	sess, err := s.Companion.SetSessionMemory(c.Request().Context(), c.Param("id"), req.Enabled, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

type chatRequest struct {
	CharacterID string `json:"character_id"`
	Message     string `json:"message"`
	EnableAgent bool   `json:"enable_agent"`
	Stream      bool   `json:"stream"`
}

// Chat runs one turn. With stream set the answer arrives as server-sent events.
func (s *APIV1Service) Chat(c echo.Context) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	turn := &companion.ChatRequest{
		SessionID:   c.Param("id"),
		CharacterID: req.CharacterID,
		Message:     req.Message,
		EnableAgent: req.EnableAgent,
		User:        currentUser(c),
	}

	ctx := c.Request().Context()
	if req.Stream {
		return streamSSE(c, s.Companion.ChatStream(ctx, turn))
	}
	resp, err := s.Companion.Chat(ctx, turn)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"tools": s.Companion.ToolNames()})
}

