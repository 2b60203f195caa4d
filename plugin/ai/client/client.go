// Package client binds INIT advisors to a generator and caches the result per character.
package client

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/advisor"
	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/plan"
)

// Turn is the input of one call.
type Turn struct {
	SessionID string
	UserName  string
	IsOwner   bool
	Message   string
}

// ChatClient is an immutable, fully assembled client for one character.
// Per-request advisors are passed to each call and never stored.
type ChatClient struct {
	characterID string
	plan        plan.InitPlan
	generator   llm.Generator
	advisors    []advisor.Advisor
	builtAt     time.Time
}

func newChatClient(p plan.InitPlan, generator llm.Generator, advisors []advisor.Advisor) *ChatClient {
	return &ChatClient{
		characterID: p.CharacterID,
		plan:        p,
		generator:   generator,
		advisors:    advisors,
		builtAt:     time.Now(),
	}
}

func (c *ChatClient) CharacterID() string { return c.characterID }

// Plan returns the InitPlan the client was built from.
func (c *ChatClient) Plan() plan.InitPlan { return c.plan }

func (c *ChatClient) BuiltAt() time.Time { return c.builtAt }

// AdvisorNames lists the INIT advisors in order.
func (c *ChatClient) AdvisorNames() []string {
	return advisor.Chain(c.advisors).Names()
}

// Call runs one turn and returns the full answer.
func (c *ChatClient) Call(ctx context.Context, turn Turn, perRequest []advisor.Advisor) (string, error) {
	req := c.request(turn)
	chain := advisor.NewChain(c.advisors, perRequest)
	if err := chain.Before(ctx, req); err != nil {
		return "", err
	}

	text, err := c.generator.Generate(ctx, &llm.Request{Messages: req.Messages(), Tools: req.Tools})
	if err != nil {
		return "", err
	}

	chain.After(ctx, req, &advisor.Response{Content: text})
	return text, nil
}

// Stream runs one turn and yields answer chunks. After hooks only run once the stream
// completed; a stream that failed or was abandoned records nothing.
func (c *ChatClient) Stream(ctx context.Context, turn Turn, perRequest []advisor.Advisor) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := c.request(turn)
		chain := advisor.NewChain(c.advisors, perRequest)
		if err := chain.Before(ctx, req); err != nil {
			yield("", err)
			return
		}

		var sb strings.Builder
		for chunk, err := range c.generator.GenerateStream(ctx, &llm.Request{Messages: req.Messages(), Tools: req.Tools}) {
			if err != nil {
				yield("", err)
				return
			}
			sb.WriteString(chunk)
			if !yield(chunk, nil) {
				return
			}
		}

		chain.After(ctx, req, &advisor.Response{Content: sb.String()})
	}
}

func (c *ChatClient) request(turn Turn) *advisor.Request {
	return &advisor.Request{
		SessionID:   turn.SessionID,
		CharacterID: c.characterID,
		UserName:    turn.UserName,
		IsOwner:     turn.IsOwner,
		UserMessage: turn.Message,
	}
}
