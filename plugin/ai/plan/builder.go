package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/quillmate/plugin/ai/prompt"
)

// ErrCharacterNotFound is returned by BuildInit when the character does not exist.
var ErrCharacterNotFound = errors.New("character not found")

// BuilderConfig holds the defaults applied to every plan.
type BuilderConfig struct {
	FallbackModel     ModelConfig
	GlobalMemoryLimit int
	Rag               RagSpec
	EnableLogging     bool
}

// Builder builds InitPlans and RequestPlans.
type Builder struct {
	characters prompt.CharacterRepository
	models     ModelConfigRepository
	memories   GlobalMemoryRepository
	assembler  *prompt.Assembler
	cfg        BuilderConfig
}

func NewBuilder(characters prompt.CharacterRepository, models ModelConfigRepository, memories GlobalMemoryRepository, assembler *prompt.Assembler, cfg BuilderConfig) *Builder {
	if cfg.GlobalMemoryLimit <= 0 {
		cfg.GlobalMemoryLimit = 10
	}
	if assembler == nil {
		assembler = prompt.NewAssembler(nil)
	}
	return &Builder{
		characters: characters,
		models:     models,
		memories:   memories,
		assembler:  assembler,
		cfg:        cfg,
	}
}

// BuildInit loads the character, the enabled model configuration and the global memory
// snapshot, and assembles the prompt. Only a missing or unreadable character is an error.
func (b *Builder) BuildInit(ctx context.Context, characterID string) (InitPlan, error) {
	if strings.TrimSpace(characterID) == "" {
		return InitPlan{}, fmt.Errorf("%w: empty character id", ErrCharacterNotFound)
	}

	character, err := b.characters.GetCharacter(ctx, characterID)
	if err != nil {
		return InitPlan{}, fmt.Errorf("load character %s: %w", characterID, err)
	}
	if character == nil {
		return InitPlan{}, fmt.Errorf("%w: %s", ErrCharacterNotFound, characterID)
	}

	model := b.ResolveModelConfig(ctx)
	memories := b.loadGlobalMemories(ctx)

	assembled, err := b.assembler.Assemble(character, memories)
	if err != nil {
		return InitPlan{}, fmt.Errorf("assemble prompt for %s: %w", characterID, err)
	}

	return InitPlan{
		ModelConfig: model,
		Prompt: PromptSpec{
			Assembled:      assembled,
			GlobalMemories: memories,
			SeparatedMode:  true,
		},
		Rag:            b.cfg.Rag,
		EnableLogging:  b.cfg.EnableLogging,
		GlobalMemories: memories,
		CharacterID:    characterID,
	}, nil
}

// ResolveModelConfig returns the enabled configuration or the fallback.
func (b *Builder) ResolveModelConfig(ctx context.Context) ModelConfig {
	if b.models == nil {
		return b.cfg.FallbackModel
	}
	model, err := b.models.GetEnabledModelConfig(ctx)
	if err != nil {
		slog.Warn("failed to load enabled model configuration, using fallback", "error", err)
		return b.cfg.FallbackModel
	}
	if model == nil {
		return b.cfg.FallbackModel
	}
	return *model
}

func (b *Builder) loadGlobalMemories(ctx context.Context) []string {
	if b.memories == nil {
		return nil
	}
	memories, err := b.memories.ListRecentGlobalMemories(ctx, b.cfg.GlobalMemoryLimit)
	if err != nil {
		slog.Warn("failed to load global memories, continuing without them", "error", err)
		return nil
	}
	return memories
}

// BuildRequest builds the plan for one turn. It never loads character data; spec is
// taken from the InitPlan of the client serving the turn.
func (b *Builder) BuildRequest(sessionID, characterID string, spec PromptSpec, memory MemorySpec, tools ToolSpec) RequestPlan {
	return RequestPlan{
		SessionID:   sessionID,
		Prompt:      spec,
		CharacterID: characterID,
		Memory:      memory,
		Tools:       tools,
	}
}
