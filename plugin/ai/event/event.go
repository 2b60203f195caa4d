// Package event carries domain events between the companion services.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/quillmate/plugin/ai/plan"
)

// Event types.
const (
	TypeModelConfigurationChanged = "model_configuration.changed"
	TypeGlobalMemoryChanged       = "global_memory.changed"
)

// DomainEvent is a structured change notification.
type DomainEvent interface {
	EventID() string
	OccurredOn() time.Time
	EventType() string
}

// Base implements the identity part of DomainEvent.
type Base struct {
	id         string
	occurredOn time.Time
	eventType  string
}

func NewBase(eventType string) Base {
	return Base{id: uuid.NewString(), occurredOn: time.Now(), eventType: eventType}
}

func (b Base) EventID() string       { return b.id }
func (b Base) OccurredOn() time.Time { return b.occurredOn }
func (b Base) EventType() string     { return b.eventType }

// ChangeType classifies a model configuration change.
type ChangeType string

const (
	ChangeProviderChanged ChangeType = "PROVIDER_CHANGED"
	ChangeFullUpdate      ChangeType = "FULL_UPDATE"
	ChangeEnabledToggled  ChangeType = "ENABLED_TOGGLED"
	ChangeSettingsChanged ChangeType = "SETTINGS_CHANGED"
)

// ModelConfigurationChangedEvent is published after a model configuration was persisted.
type ModelConfigurationChangedEvent struct {
	Base
	Old        *plan.ModelConfig
	New        *plan.ModelConfig
	ChangeType ChangeType
}

func NewModelConfigurationChanged(old, updated *plan.ModelConfig, change ChangeType) *ModelConfigurationChangedEvent {
	return &ModelConfigurationChangedEvent{
		Base:       NewBase(TypeModelConfigurationChanged),
		Old:        old,
		New:        updated,
		ChangeType: change,
	}
}

// WaitsForQueue reports true: losing this event leaves cached chat clients stale.
func (e *ModelConfigurationChangedEvent) WaitsForQueue() bool {
	return true
}

// RequiresChatClientRebuild reports whether cached chat clients are stale after this change.
func (e *ModelConfigurationChangedEvent) RequiresChatClientRebuild() bool {
	switch e.ChangeType {
	case ChangeProviderChanged, ChangeFullUpdate:
		return true
	case ChangeEnabledToggled:
		return e.New != nil && e.New.Enabled
	default:
		return false
	}
}

// ClassifyChange compares two versions of a configuration. A nil old value is a full update.
func ClassifyChange(old, updated *plan.ModelConfig) ChangeType {
	switch {
	case old == nil || updated == nil:
		return ChangeFullUpdate
	case old.Provider != updated.Provider || old.BaseURL != updated.BaseURL:
		return ChangeProviderChanged
	case old.Model != updated.Model || old.APIKey != updated.APIKey:
		return ChangeFullUpdate
	case old.Enabled != updated.Enabled:
		return ChangeEnabledToggled
	default:
		return ChangeSettingsChanged
	}
}

// MemoryChange is the kind of global memory mutation.
type MemoryChange string

const (
	MemoryCreated MemoryChange = "CREATED"
	MemoryUpdated MemoryChange = "UPDATED"
	MemoryDeleted MemoryChange = "DELETED"
)

// GlobalMemoryChangedEvent is recorded by the global memory entity on every mutation.
type GlobalMemoryChangedEvent struct {
	Base
	MemoryID int64
	Content  string
	Change   MemoryChange
}

func NewGlobalMemoryChanged(id int64, content string, change MemoryChange) *GlobalMemoryChangedEvent {
	return &GlobalMemoryChangedEvent{
		Base:     NewBase(TypeGlobalMemoryChanged),
		MemoryID: id,
		Content:  content,
		Change:   change,
	}
}
