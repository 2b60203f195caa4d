package advisor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hrygo/quillmate/plugin/ai/memory"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/prompt"
	"github.com/hrygo/quillmate/plugin/ai/rag"
	"github.com/hrygo/quillmate/plugin/ai/tools"
)

// ErrRetrieverUnavailable is returned when a plan asks for retrieval but no retriever is configured.
var ErrRetrieverUnavailable = errors.New("retrieval requested but no retriever configured")

// FactoryConfig holds the collaborators advisors are built from. Nil backends disable their advisors.
type FactoryConfig struct {
	Renderer prompt.Renderer
	// SessionMemory backs session-only memory specs.
	SessionMemory memory.Backend
	// DurableMemory backs persistent memory specs.
	DurableMemory memory.Backend
	Retriever     rag.Retriever
	Tools         *tools.Registry
}

// Factory turns plans into advisor lists.
type Factory struct {
	renderer      prompt.Renderer
	sessionMemory memory.Backend
	durableMemory memory.Backend
	retriever     rag.Retriever
	tools         *tools.Registry
}

func NewFactory(cfg FactoryConfig) *Factory {
	if cfg.Renderer == nil {
		cfg.Renderer = prompt.NewTemplateRenderer()
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry()
	}
	return &Factory{
		renderer:      cfg.Renderer,
		sessionMemory: cfg.SessionMemory,
		durableMemory: cfg.DurableMemory,
		retriever:     cfg.Retriever,
		tools:         cfg.Tools,
	}
}

// Build returns the advisors of p for the given stage, sorted by priority.
func (f *Factory) Build(stage Stage, p plan.Plan) ([]Advisor, error) {
	switch typed := p.(type) {
	case plan.InitPlan:
		if stage != StageInit {
			return nil, fmt.Errorf("init plan cannot be built for stage %s", stage)
		}
		return f.BuildInit(typed)
	case plan.RequestPlan:
		if stage != StagePerRequest {
			return nil, fmt.Errorf("request plan cannot be built for stage %s", stage)
		}
		return f.BuildRequest(typed), nil
	default:
		return nil, fmt.Errorf("unsupported plan type %T", p)
	}
}

// BuildInit builds the advisors cached with a client. Any failure fails the whole build.
// An empty plan yields no prompt advisors.
func (f *Factory) BuildInit(p plan.InitPlan) ([]Advisor, error) {
	var advisors []Advisor

	if !p.IsEmpty() && !p.Prompt.IsEmpty() {
		advisors = append(advisors, f.promptAdvisors(p.Prompt)...)
	}

	if p.Rag.IsValid() {
		if f.retriever == nil {
			return nil, ErrRetrieverUnavailable
		}
		advisors = append(advisors, &retrievalAdvisor{
			base:      base{name: NameRetrieval, order: PriorityRetrieval},
			retriever: f.retriever,
			spec:      p.Rag,
		})
	}

	if p.EnableLogging {
		advisors = append(advisors, &loggingAdvisor{base: base{name: NameLogging, order: PriorityLogging}})
	}

	sortByPriority(advisors)
	return advisors, nil
}

func (f *Factory) promptAdvisors(spec plan.PromptSpec) []Advisor {
	a := spec.Assembled
	address := newUserAddressAdvisor(f.renderer)

	if !spec.SeparatedMode {
		return []Advisor{&combinedAdvisor{
			base:    base{name: NameCombined, order: PrioritySystem},
			text:    a.Combined(),
			address: address,
		}}
	}

	sections := []struct {
		name  string
		order Priority
		text  string
	}{
		{NameSystem, PrioritySystem, a.System},
		{NameBehavior, PriorityBehavior, a.Behavior},
		{NameGlobalMemory, PriorityGlobalMemory, a.GlobalMemory},
		{NameCharacter, PriorityCharacter, a.CharacterCard},
	}
	advisors := make([]Advisor, 0, len(sections)+1)
	for _, s := range sections {
		if s.text == "" {
			continue
		}
		advisors = append(advisors, newTextAdvisor(s.name, s.order, s.text))
	}
	return append(advisors, address)
}

// BuildRequest builds the advisors for one turn. An advisor that cannot be built is
// omitted and logged; the turn proceeds without it.
func (f *Factory) BuildRequest(p plan.RequestPlan) []Advisor {
	if !p.IsValid() {
		slog.Warn("request plan without session id, no per-request advisors", "character_id", p.CharacterID)
		return nil
	}

	var advisors []Advisor

	if p.NeedsMemory() {
		if a, err := f.memoryAdvisor(p); err != nil {
			slog.Warn("memory advisor omitted",
				"session_id", p.SessionID,
				"memory_type", p.Memory.Type.String(),
				"error", err)
		} else {
			advisors = append(advisors, a)
		}
	}

	if p.EnableTools() {
		resolved, err := f.tools.Resolve(p.Tools.Names)
		if err != nil {
			slog.Warn("tool advisor omitted", "session_id", p.SessionID, "error", err)
		} else {
			advisors = append(advisors, &toolAdvisor{
				base:  base{name: NameTools, order: PriorityTools},
				tools: resolved,
			})
		}
	}

	sortByPriority(advisors)
	return advisors
}

func (f *Factory) memoryAdvisor(p plan.RequestPlan) (Advisor, error) {
	switch p.Memory.Type {
	case plan.MemorySessionOnly:
		if f.sessionMemory == nil {
			return nil, errors.New("no session memory backend")
		}
		return &memoryAdvisor{
			base:    base{name: NameSessionMemory, order: PriorityMemory},
			backend: f.sessionMemory,
			key:     p.SessionID,
			window:  p.Memory.WindowSize,
		}, nil
	case plan.MemoryPersistent:
		if f.durableMemory == nil {
			return nil, errors.New("no durable memory backend")
		}
		return &memoryAdvisor{
			base:    base{name: NameDurableMemory, order: PriorityMemory},
			backend: f.durableMemory,
			key:     p.Memory.ConversationID,
			window:  p.Memory.WindowSize,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported memory type %s", p.Memory.Type)
	}
}
