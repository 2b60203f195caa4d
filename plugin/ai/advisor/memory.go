package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/memory"
)

// memoryAdvisor loads the conversation window before the call and records the turn after it.
type memoryAdvisor struct {
	base
	backend memory.Backend
	key     string
	window  int
}

func (a *memoryAdvisor) Before(ctx context.Context, req *Request) error {
	msgs, err := a.backend.Load(ctx, a.key, a.window)
	if err != nil {
		return fmt.Errorf("load memory: %w", err)
	}
	for _, m := range msgs {
		req.History = append(req.History, llm.Message{Role: m.Role, Content: m.Content})
	}
	return nil
}

func (a *memoryAdvisor) After(ctx context.Context, req *Request, resp *Response) error {
	now := time.Now()
	// The answer sorts strictly after the question in millisecond-resolution stores.
	return a.backend.Save(ctx, a.key,
		memory.Message{Role: llm.RoleUser, Content: req.UserMessage, Timestamp: now},
		memory.Message{Role: llm.RoleAssistant, Content: resp.Content, Timestamp: now.Add(time.Millisecond)},
	)
}
