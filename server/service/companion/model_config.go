package companion

import (
	"context"
	"strings"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/event"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	aierrors "github.com/hrygo/quillmate/server/internal/errors"
	"github.com/hrygo/quillmate/store"
)

// ModelConfigInput is the editable part of a model configuration.
type ModelConfigInput struct {
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func (in ModelConfigInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return aierrors.InvalidArgument("model configuration name is required")
	}
	if strings.TrimSpace(in.Model) == "" {
		return aierrors.InvalidArgument("model is required")
	}
	return nil
}

func (s *Service) ListModelConfigurations(ctx context.Context) ([]plan.ModelConfig, error) {
	rows, err := s.store.ListModelConfigurations(ctx, &store.FindModelConfiguration{})
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to list model configurations")
	}
	out := make([]plan.ModelConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := modelConfigFromRow(row)
		if err != nil {
			return nil, toAIError(err, aierrors.ErrCodeConfigAbsent, "unreadable model configuration")
		}
		out = append(out, redact(cfg))
	}
	return out, nil
}

// CreateModelConfiguration stores a new, disabled configuration.
func (s *Service) CreateModelConfiguration(ctx context.Context, in ModelConfigInput) (*plan.ModelConfig, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row, err := modelConfigToRow(apply(plan.ModelConfig{}, in))
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeInvalidArgument, "invalid model configuration")
	}
	now := time.Now().UnixMilli()
	row.CreatedTs, row.UpdatedTs = now, now
	created, err := s.store.CreateModelConfiguration(ctx, row)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to create model configuration")
	}
	cfg, err := modelConfigFromRow(created)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeConfigAbsent, "unreadable model configuration")
	}
	return ptr(redact(cfg)), nil
}

// UpdateModelConfiguration replaces the settings of a configuration. Changes to the
// enabled configuration are published so cached clients can be rebuilt.
func (s *Service) UpdateModelConfiguration(ctx context.Context, id int32, in ModelConfigInput) (*plan.ModelConfig, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	old, err := s.getModelConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := apply(*old, in)
	if in.APIKey == "" {
		updated.APIKey = old.APIKey
	}

	saved, err := s.saveModelConfig(ctx, updated)
	if err != nil {
		return nil, err
	}
	if old.Enabled {
		s.bus.PublishAsync(event.NewModelConfigurationChanged(old, saved, event.ClassifyChange(old, saved)))
	}
	return ptr(redact(*saved)), nil
}

// EnableModelConfiguration toggles a configuration. Enabling one disables every other.
func (s *Service) EnableModelConfiguration(ctx context.Context, id int32, enabled bool) (*plan.ModelConfig, error) {
	old, err := s.getModelConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Enabled == enabled {
		return ptr(redact(*old)), nil
	}

	updated := *old
	updated.Enabled = enabled
	saved, err := s.saveModelConfig(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.bus.PublishAsync(event.NewModelConfigurationChanged(old, saved, event.ClassifyChange(old, saved)))
	return ptr(redact(*saved)), nil
}

func (s *Service) getModelConfig(ctx context.Context, id int32) (*plan.ModelConfig, error) {
	row, err := s.store.GetModelConfiguration(ctx, id)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to load model configuration")
	}
	if row == nil {
		return nil, aierrors.NotFound("model configuration not found").WithContext("id", id)
	}
	cfg, err := modelConfigFromRow(row)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeConfigAbsent, "unreadable model configuration")
	}
	return &cfg, nil
}

func (s *Service) saveModelConfig(ctx context.Context, cfg plan.ModelConfig) (*plan.ModelConfig, error) {
	row, err := modelConfigToRow(cfg)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeInvalidArgument, "invalid model configuration")
	}
	row.UpdatedTs = time.Now().UnixMilli()
	saved, err := s.store.UpdateModelConfiguration(ctx, row)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to save model configuration")
	}
	if saved == nil {
		return nil, aierrors.NotFound("model configuration not found").WithContext("id", cfg.ID)
	}
	out, err := modelConfigFromRow(saved)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeConfigAbsent, "unreadable model configuration")
	}
	return &out, nil
}

func apply(cfg plan.ModelConfig, in ModelConfigInput) plan.ModelConfig {
	cfg.Name = strings.TrimSpace(in.Name)
	cfg.Provider = strings.TrimSpace(in.Provider)
	cfg.Model = strings.TrimSpace(in.Model)
	cfg.BaseURL = strings.TrimSpace(in.BaseURL)
	cfg.APIKey = in.APIKey
	cfg.Temperature = in.Temperature
	cfg.MaxTokens = in.MaxTokens
	return cfg
}

// redact hides the API key from callers.
func redact(cfg plan.ModelConfig) plan.ModelConfig {
	if cfg.APIKey != "" {
		cfg.APIKey = "******"
	}
	return cfg
}

func ptr[T any](v T) *T {
	return &v
}
