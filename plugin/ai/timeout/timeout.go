// Package timeout defines the time budgets of companion generation.
package timeout

import "time"

const (
	// ChatTimeout bounds one non-streaming chat turn, tool rounds included.
	ChatTimeout = 2 * time.Minute

	// StreamTimeout bounds one streamed chat turn.
	StreamTimeout = 5 * time.Minute

	// TaskTimeout bounds one background task generation.
	TaskTimeout = 90 * time.Second

	// ToolExecutionTimeout bounds a single tool call.
	ToolExecutionTimeout = 30 * time.Second

	// EmbeddingTimeout bounds one embedding request attempt.
	EmbeddingTimeout = 30 * time.Second

	// MaxToolRounds is the number of model round trips that may request tools.
	MaxToolRounds = 4
)
