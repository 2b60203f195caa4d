package advisor

import (
	"context"
	"fmt"

	"github.com/hrygo/quillmate/plugin/ai/prompt"
)

// Advisor names.
const (
	NameSystem        = "system_prompt"
	NameBehavior      = "behavior_guide"
	NameGlobalMemory  = "global_memory"
	NameCharacter     = "character_card"
	NameUserAddress   = "user_address"
	NameCombined      = "combined_prompt"
	NameSessionMemory = "session_memory"
	NameDurableMemory = "durable_memory"
	NameRetrieval     = "retrieval"
	NameTools         = "tool_calling"
	NameLogging       = "logging"
)

// textAdvisor appends a fixed prompt section.
type textAdvisor struct {
	base
	text string
}

func newTextAdvisor(name string, order Priority, text string) *textAdvisor {
	return &textAdvisor{base: base{name: name, order: order}, text: text}
}

func (a *textAdvisor) Before(_ context.Context, req *Request) error {
	req.System = append(req.System, a.text)
	return nil
}

// userAddressAdvisor tells the model who it is talking to this turn.
type userAddressAdvisor struct {
	base
	renderer prompt.Renderer
}

func newUserAddressAdvisor(renderer prompt.Renderer) *userAddressAdvisor {
	return &userAddressAdvisor{base: base{name: NameUserAddress, order: PriorityUserAddress}, renderer: renderer}
}

func (a *userAddressAdvisor) Before(_ context.Context, req *Request) error {
	text, err := a.renderer.Render(prompt.UserAddressTemplate, prompt.UserContext(req.UserName, req.IsOwner))
	if err != nil {
		return fmt.Errorf("render user address: %w", err)
	}
	req.System = append(req.System, text)
	return nil
}

// combinedAdvisor injects the whole assembled prompt plus the user address as one section.
type combinedAdvisor struct {
	base
	text    string
	address *userAddressAdvisor
}

func (a *combinedAdvisor) Before(ctx context.Context, req *Request) error {
	req.System = append(req.System, a.text)
	return a.address.Before(ctx, req)
}
