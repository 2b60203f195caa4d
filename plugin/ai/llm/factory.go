package llm

import (
	"fmt"
	"strings"

	"github.com/hrygo/quillmate/plugin/ai/plan"
)

// Factory builds a generator for a model configuration.
type Factory func(cfg plan.ModelConfig) (Generator, error)

// NewFactory returns a Factory for OpenAI-compatible providers.
// embeddingModel is shared by every generator the factory creates.
func NewFactory(embeddingModel string) Factory {
	return func(cfg plan.ModelConfig) (Generator, error) {
		switch strings.ToLower(cfg.Provider) {
		case "", "openai", "deepseek", "siliconflow", "ollama":
		default:
			return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("model configuration %q has no model", cfg.Name)
		}
		return NewOpenAI(Config{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			EmbeddingModel: embeddingModel,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
		}), nil
	}
}
