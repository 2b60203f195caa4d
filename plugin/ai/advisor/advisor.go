// Package advisor builds the ordered middleware units wrapped around a generation call.
package advisor

import (
	"context"
	"strings"

	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/tools"
)

// Priority orders advisors. Lower runs first.
type Priority int

const (
	PrioritySystem       Priority = 100
	PriorityBehavior     Priority = 200
	PriorityGlobalMemory Priority = 250
	PriorityCharacter    Priority = 300
	PriorityUserAddress  Priority = 350
	PriorityMemory       Priority = 400
	PriorityRetrieval    Priority = 600
	PriorityTools        Priority = 700
	PriorityLogging      Priority = 900
)

// Stage is when an advisor is attached.
type Stage int

const (
	// StageInit advisors are attached once when a client is built and cached with it.
	StageInit Stage = iota
	// StagePerRequest advisors are attached for one call and discarded.
	StagePerRequest
)

func (s Stage) String() string {
	if s == StageInit {
		return "INIT"
	}
	return "PER_REQUEST"
}

// Request is the mutable state of one call as it passes through the advisors.
type Request struct {
	SessionID   string
	CharacterID string
	UserName    string
	IsOwner     bool
	UserMessage string

	// System sections in the order advisors added them.
	System []string
	// History is the conversation window, oldest first.
	History []llm.Message
	// Context holds retrieved reference material.
	Context []string
	Tools   []tools.Tool
}

// Messages flattens the request into chat messages for the generator.
func (r *Request) Messages() []llm.Message {
	sections := make([]string, 0, len(r.System)+len(r.Context))
	sections = append(sections, r.System...)
	sections = append(sections, r.Context...)

	msgs := make([]llm.Message, 0, len(r.History)+2)
	if len(sections) > 0 {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: strings.Join(sections, "\n\n")})
	}
	msgs = append(msgs, r.History...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: r.UserMessage})
	return msgs
}

// Response is the generated answer.
type Response struct {
	Content string
}

// Advisor wraps a generation call. Before hooks run in priority order ahead of the call,
// After hooks run in reverse order once the answer is complete.
type Advisor interface {
	Name() string
	Order() Priority
	Before(ctx context.Context, req *Request) error
	After(ctx context.Context, req *Request, resp *Response) error
}

// base provides names and no-op hooks.
type base struct {
	name  string
	order Priority
}

func (b base) Name() string { return b.name }

func (b base) Order() Priority { return b.order }

func (base) Before(context.Context, *Request) error { return nil }

func (base) After(context.Context, *Request, *Response) error { return nil }
