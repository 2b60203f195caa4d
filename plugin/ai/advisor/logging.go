package advisor

import (
	"context"
	"log/slog"
)

// loggingAdvisor records request and response summaries at debug level.
type loggingAdvisor struct {
	base
}

func (a *loggingAdvisor) Before(_ context.Context, req *Request) error {
	slog.Debug("companion request",
		"session_id", req.SessionID,
		"character_id", req.CharacterID,
		"system_sections", len(req.System),
		"history", len(req.History),
		"context", len(req.Context),
		"tools", len(req.Tools),
		"message_length", len(req.UserMessage))
	return nil
}

func (a *loggingAdvisor) After(_ context.Context, req *Request, resp *Response) error {
	slog.Debug("companion response",
		"session_id", req.SessionID,
		"character_id", req.CharacterID,
		"response_length", len(resp.Content))
	return nil
}
