package plan

import (
	"strings"
)

// Plan is implemented by InitPlan and RequestPlan.
type Plan interface {
	isPlan()
}

// InitPlan describes how to construct a cached client for one character.
type InitPlan struct {
	ModelConfig    ModelConfig
	Prompt         PromptSpec
	Rag            RagSpec
	EnableLogging  bool
	GlobalMemories []string
	CharacterID    string

	empty bool
}

func (InitPlan) isPlan() {}

// EmptyInitPlan is the sentinel returned when an init plan cannot be satisfied.
// A client built from it has no prompt advisors.
func EmptyInitPlan(characterID string, model ModelConfig) InitPlan {
	return InitPlan{
		CharacterID: characterID,
		ModelConfig: model,
		Rag:         DisabledRag(),
		empty:       true,
	}
}

func (p InitPlan) IsEmpty() bool {
	return p.empty
}

// RequestPlan describes what to attach to one turn. It is never cached.
// Prompt is the character's PromptSpec as planned for its cached client; the
// prompt advisors already live on that client, so a turn never re-assembles it.
type RequestPlan struct {
	SessionID   string
	Prompt      PromptSpec
	CharacterID string
	Memory      MemorySpec
	Tools       ToolSpec
}

func (RequestPlan) isPlan() {}

func (p RequestPlan) IsValid() bool {
	return strings.TrimSpace(p.SessionID) != ""
}

func (p RequestPlan) NeedsMemory() bool {
	return p.Memory.IsValid()
}

func (p RequestPlan) EnableTools() bool {
	return p.Tools.IsValid()
}
