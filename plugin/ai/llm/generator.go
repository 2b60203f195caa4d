// Package llm is the opaque generation capability: chat completion, streaming and embeddings.
package llm

import (
	"context"
	"iter"

	"github.com/hrygo/quillmate/plugin/ai/tools"
)

// Role values accepted by Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    string
	Content string
}

// Request is a single generation call.
type Request struct {
	Messages []Message
	// Tools may be called by the model before it answers.
	Tools []tools.Tool
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
	// GenerateStream yields text chunks. A non-nil error is always the last element.
	// Breaking out of the loop cancels the underlying call.
	GenerateStream(ctx context.Context, req *Request) iter.Seq2[string, error]
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
