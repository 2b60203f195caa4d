// Package tools holds the registry of tools a turn may expose to the model.
package tools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// ErrUnknownTool is returned when a tool name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is a function the model may call. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Call        func(ctx context.Context, arguments string) (string, error)
}

// Registry maps tool names to tools. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.tools[t.Name] = t
	}
	return r
}

// Register adds a tool. Registering a name twice is an error.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Call == nil {
		return errors.New("tool needs a name and a call function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Validate returns ErrUnknownTool for the first name that is not registered.
func (r *Registry) Validate(names []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if _, ok := r.tools[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTool, name)
		}
	}
	return nil
}

// Resolve returns the tools for names in the given order.
func (r *Registry) Resolve(names []string) ([]Tool, error) {
	if err := r.Validate(names); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(names))
	for _, name := range slices.Compact(slices.Clone(names)) {
		out = append(out, r.tools[name])
	}
	return out, nil
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
