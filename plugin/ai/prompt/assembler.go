package prompt

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Assembled is the immutable prompt material of one character.
// Each field is one concern so advisors can inject them separately.
type Assembled struct {
	CharacterID   string
	System        string
	Behavior      string
	CharacterCard string
	GlobalMemory  string
}

// Combined joins every non-empty section in priority order.
func (a Assembled) Combined() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{a.System, a.Behavior, a.GlobalMemory, a.CharacterCard} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// IsEmpty reports whether nothing was assembled.
func (a Assembled) IsEmpty() bool {
	return a.System == "" && a.Behavior == "" && a.CharacterCard == "" && a.GlobalMemory == ""
}

// Assembler renders the character templates. It holds no state besides the renderer,
// so the same inputs always give the same output.
type Assembler struct {
	renderer Renderer
}

func NewAssembler(renderer Renderer) *Assembler {
	if renderer == nil {
		renderer = NewTemplateRenderer()
	}
	return &Assembler{renderer: renderer}
}

// Assemble builds the prompt for c with the given global memory snapshot.
func (a *Assembler) Assemble(c *Character, globalMemories []string) (Assembled, error) {
	if c == nil {
		return Assembled{}, errors.New("character is nil")
	}
	vars := CharacterContext(c)

	system, err := a.renderer.Render(SystemTemplate, vars)
	if err != nil {
		return Assembled{}, errors.Wrap(err, "system prompt")
	}
	behavior, err := a.renderer.Render(BehaviorTemplate, vars)
	if err != nil {
		return Assembled{}, errors.Wrap(err, "behavior guide")
	}
	card, err := a.renderer.Render(CharacterCardTemplate, vars)
	if err != nil {
		return Assembled{}, errors.Wrap(err, "character card")
	}

	return Assembled{
		CharacterID:   c.ID,
		System:        system,
		Behavior:      behavior,
		CharacterCard: card,
		GlobalMemory:  FormatGlobalMemories(globalMemories),
	}, nil
}

// FormatGlobalMemories renders the global memory snapshot as a bullet section.
func FormatGlobalMemories(memories []string) string {
	if len(memories) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("### Things to remember\n")
	for _, m := range memories {
		sb.WriteString(fmt.Sprintf("- %s\n", m))
	}
	return strings.TrimRight(sb.String(), "\n")
}
