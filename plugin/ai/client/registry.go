package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/quillmate/plugin/ai/advisor"
	"github.com/hrygo/quillmate/plugin/ai/event"
	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/plan"
)

// AlertTaskPlanFallback is raised when the task client was built from an empty InitPlan.
const AlertTaskPlanFallback = "task_plan_fallback"

// ErrBlankCharacterID is returned for a blank character id.
var ErrBlankCharacterID = errors.New("character id is blank")

// InitPlanner builds InitPlans.
type InitPlanner interface {
	BuildInit(ctx context.Context, characterID string) (plan.InitPlan, error)
	ResolveModelConfig(ctx context.Context) plan.ModelConfig
}

// InitAdvisorBuilder builds the advisors cached with a client.
type InitAdvisorBuilder interface {
	BuildInit(p plan.InitPlan) ([]advisor.Advisor, error)
}

// AlertSink receives named operational alerts.
type AlertSink interface {
	Alert(name string, attrs ...any)
}

type RegistryConfig struct {
	Planner         InitPlanner
	Advisors        InitAdvisorBuilder
	Generators      llm.Factory
	Alerts          AlertSink
	TaskCharacterID string
}

// Registry caches one ChatClient per character plus the task client.
// Builds for the same key are deduplicated; different keys build concurrently.
// Invalidation drops entries and lets the next access rebuild.
type Registry struct {
	planner         InitPlanner
	advisors        InitAdvisorBuilder
	generators      llm.Factory
	alerts          AlertSink
	taskCharacterID string

	mu      sync.RWMutex
	clients map[string]*ChatClient
	task    *ChatClient
	// epoch and generations discard builds that started before an invalidation.
	epoch       uint64
	generations map[string]uint64

	group     singleflight.Group
	taskGroup singleflight.Group
	builds    atomic.Int64
}

func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		planner:         cfg.Planner,
		advisors:        cfg.Advisors,
		generators:      cfg.Generators,
		alerts:          cfg.Alerts,
		taskCharacterID: cfg.TaskCharacterID,
		clients:         make(map[string]*ChatClient),
		generations:     make(map[string]uint64),
	}
}

// GetOrCreate returns the cached client of a character, building it on first use.
func (r *Registry) GetOrCreate(ctx context.Context, characterID string) (*ChatClient, error) {
	if strings.TrimSpace(characterID) == "" {
		return nil, ErrBlankCharacterID
	}
	if c, ok := r.lookup(characterID); ok {
		return c, nil
	}

	return r.singleBuild(ctx, characterID, false, func(buildCtx context.Context) (*ChatClient, error) {
		p, err := r.planner.BuildInit(buildCtx, characterID)
		if err != nil {
			return nil, err
		}
		return r.buildFromPlan(p)
	})
}

// TaskClient returns the task client, building it on first use. When the task
// InitPlan cannot be built the caller gets a client on an empty plan and an alert
// is raised; that client is not cached, so every call retries the plan until it succeeds.
func (r *Registry) TaskClient(ctx context.Context) (*ChatClient, error) {
	if c, ok := r.lookupTask(); ok {
		return c, nil
	}

	return r.singleBuild(ctx, r.taskCharacterID, true, func(buildCtx context.Context) (*ChatClient, error) {
		p, err := r.planner.BuildInit(buildCtx, r.taskCharacterID)
		if err != nil {
			slog.Error("task init plan failed, falling back to empty plan",
				"character_id", r.taskCharacterID,
				"error", err)
			if r.alerts != nil {
				r.alerts.Alert(AlertTaskPlanFallback, "character_id", r.taskCharacterID, "error", err.Error())
			}
			p = plan.EmptyInitPlan(r.taskCharacterID, r.planner.ResolveModelConfig(buildCtx))
		}
		return r.buildFromPlan(p)
	})
}

// WarmTaskClient builds the task client at startup. With require set, a task
// character that cannot be planned is an error instead of a fallback.
func (r *Registry) WarmTaskClient(ctx context.Context, require bool) error {
	if !require {
		_, err := r.TaskClient(ctx)
		return err
	}

	_, err := r.singleBuild(ctx, r.taskCharacterID, true, func(buildCtx context.Context) (*ChatClient, error) {
		p, err := r.planner.BuildInit(buildCtx, r.taskCharacterID)
		if err != nil {
			return nil, fmt.Errorf("task character %q: %w", r.taskCharacterID, err)
		}
		return r.buildFromPlan(p)
	})
	return err
}

// Invalidate drops the cached client of one character.
func (r *Registry) Invalidate(characterID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, characterID)
	r.generations[characterID]++
}

// InvalidateAll drops every cached client including the task client.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.clients)
	r.task = nil
	r.epoch++
}

// Contains reports whether a client for the character is cached.
func (r *Registry) Contains(characterID string) bool {
	_, ok := r.lookup(characterID)
	return ok
}

// HasTaskClient reports whether the task client is cached.
func (r *Registry) HasTaskClient() bool {
	_, ok := r.lookupTask()
	return ok
}

// Builds returns how many clients were built since start.
func (r *Registry) Builds() int64 {
	return r.builds.Load()
}

// OnModelConfigurationChanged invalidates every client when the change affects them.
// Clients rebuild lazily on their next access.
func (r *Registry) OnModelConfigurationChanged(_ context.Context, ev *event.ModelConfigurationChangedEvent) error {
	if !ev.RequiresChatClientRebuild() {
		slog.Debug("model configuration change keeps chat clients", "change_type", ev.ChangeType)
		return nil
	}
	r.InvalidateAll()
	slog.Info("chat clients invalidated", "change_type", ev.ChangeType, "event_id", ev.EventID())
	return nil
}

func (r *Registry) lookup(characterID string) (*ChatClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[characterID]
	return c, ok
}

func (r *Registry) lookupTask() (*ChatClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.task, r.task != nil
}

// singleBuild runs build at most once per key at a time. The build is detached from
// the caller's cancellation so an abandoned caller does not fail the others waiting on it.
func (r *Registry) singleBuild(ctx context.Context, key string, task bool, build func(context.Context) (*ChatClient, error)) (*ChatClient, error) {
	group, lookup := &r.group, func() (*ChatClient, bool) { return r.lookup(key) }
	if task {
		group, lookup = &r.taskGroup, r.lookupTask
	}

	ch := group.DoChan(key, func() (any, error) {
		if c, ok := lookup(); ok {
			return c, nil
		}

		r.mu.RLock()
		epoch, generation := r.epoch, r.generations[key]
		r.mu.RUnlock()

		c, err := build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		r.builds.Add(1)

		r.mu.Lock()
		// A fallback task client is served but never cached so the next access re-plans.
		if r.epoch == epoch && r.generations[key] == generation && !(task && c.plan.IsEmpty()) {
			if task {
				r.task = c
			} else {
				r.clients[key] = c
			}
		}
		r.mu.Unlock()
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ChatClient), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) buildFromPlan(p plan.InitPlan) (*ChatClient, error) {
	advisors, err := r.advisors.BuildInit(p)
	if err != nil {
		return nil, fmt.Errorf("build init advisors for %q: %w", p.CharacterID, err)
	}
	generator, err := r.generators(p.ModelConfig)
	if err != nil {
		return nil, fmt.Errorf("build generator for %q: %w", p.CharacterID, err)
	}
	slog.Debug("chat client built",
		"character_id", p.CharacterID,
		"model", p.ModelConfig.Model,
		"empty_plan", p.IsEmpty(),
		"advisors", len(advisors))
	return newChatClient(p, generator, advisors), nil
}
