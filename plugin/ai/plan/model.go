package plan

import (
	"context"

	"github.com/hrygo/quillmate/internal/profile"
)

// ModelConfig is the provider configuration a client is bound to.
type ModelConfig struct {
	ID          int32
	Name        string
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	MaxTokens   int
	Enabled     bool
}

// DefaultModelConfig is used when no configuration is enabled in the store.
func DefaultModelConfig(ai profile.AIProfile) ModelConfig {
	return ModelConfig{
		Name:        "default",
		Provider:    ai.Provider,
		Model:       ai.Model,
		BaseURL:     ai.BaseURL,
		APIKey:      ai.APIKey,
		Temperature: ai.Temperature,
		MaxTokens:   ai.MaxTokens,
		Enabled:     true,
	}
}

// ModelConfigRepository returns the enabled configuration, or nil when none is enabled.
type ModelConfigRepository interface {
	GetEnabledModelConfig(ctx context.Context) (*ModelConfig, error)
}

// GlobalMemoryRepository returns up to limit global memory texts, most recent first.
type GlobalMemoryRepository interface {
	ListRecentGlobalMemories(ctx context.Context, limit int) ([]string, error)
}
