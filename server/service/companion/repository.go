package companion

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/plugin/ai/prompt"
	"github.com/hrygo/quillmate/store"
)

// Repository adapts the store to the plan builder and the built-in tools.
type Repository struct {
	store *store.Store
}

func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

func (r *Repository) GetCharacter(ctx context.Context, id string) (*prompt.Character, error) {
	row, err := r.store.GetCharacter(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &prompt.Character{
		ID:              row.ID,
		Name:            row.Name,
		Persona:         row.Persona,
		WorldScenario:   row.WorldScenario,
		Greeting:        row.Greeting,
		ExampleDialogue: row.ExampleDialogue,
	}, nil
}

func (r *Repository) GetEnabledModelConfig(ctx context.Context) (*plan.ModelConfig, error) {
	row, err := r.store.GetEnabledModelConfiguration(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	cfg, err := modelConfigFromRow(row)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Repository) ListRecentGlobalMemories(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.store.ListGlobalMemories(ctx, &store.FindGlobalMemory{Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Content)
	}
	return out, nil
}

// modelSettings is the JSON document stored in ModelConfiguration.Settings.
type modelSettings struct {
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url,omitempty"`
	APIKey      string  `json:"api_key,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

func modelConfigFromRow(row *store.ModelConfiguration) (plan.ModelConfig, error) {
	var settings modelSettings
	if row.Settings != "" {
		if err := json.Unmarshal([]byte(row.Settings), &settings); err != nil {
			return plan.ModelConfig{}, errors.Wrapf(err, "failed to decode settings of model configuration %d", row.ID)
		}
	}
	return plan.ModelConfig{
		ID:          row.ID,
		Name:        row.Name,
		Provider:    row.Provider,
		Model:       settings.Model,
		BaseURL:     settings.BaseURL,
		APIKey:      settings.APIKey,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		Enabled:     row.Enabled,
	}, nil
}

func modelConfigToRow(cfg plan.ModelConfig) (*store.ModelConfiguration, error) {
	settings, err := json.Marshal(modelSettings{
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode model settings")
	}
	return &store.ModelConfiguration{
		ID:       cfg.ID,
		Name:     cfg.Name,
		Provider: cfg.Provider,
		Settings: string(settings),
		Enabled:  cfg.Enabled,
	}, nil
}

var (
	_ prompt.CharacterRepository  = (*Repository)(nil)
	_ plan.ModelConfigRepository  = (*Repository)(nil)
	_ plan.GlobalMemoryRepository = (*Repository)(nil)
)
