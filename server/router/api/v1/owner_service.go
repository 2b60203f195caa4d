package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/quillmate/plugin/ai/memory"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/server/service/companion"
)

type globalMemoryResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toGlobalMemoryResponse(m *memory.GlobalMemory) globalMemoryResponse {
	return globalMemoryResponse{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

type globalMemoryRequest struct {
	Content string `json:"content"`
}

func (s *APIV1Service) ListGlobalMemories(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	list, err := s.Companion.ListGlobalMemories(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]globalMemoryResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toGlobalMemoryResponse(m))
	}
	return c.JSON(http.StatusOK, map[string]any{"memories": out})
}

func (s *APIV1Service) CreateGlobalMemory(c echo.Context) error {
	var req globalMemoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	m, err := s.Companion.CreateGlobalMemory(c.Request().Context(), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toGlobalMemoryResponse(m))
}

func (s *APIV1Service) UpdateGlobalMemory(c echo.Context) error {
	id, err := pathInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req globalMemoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	m, err := s.Companion.UpdateGlobalMemory(c.Request().Context(), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toGlobalMemoryResponse(m))
}

func (s *APIV1Service) DeleteGlobalMemory(c echo.Context) error {
	id, err := pathInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Companion.DeleteGlobalMemory(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// modelConfigResponse never carries the API key; HasAPIKey tells whether one is stored.
type modelConfigResponse struct {
	ID          int32   `json:"id"`
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url"`
	HasAPIKey   bool    `json:"has_api_key"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Enabled     bool    `json:"enabled"`
}

func toModelConfigResponse(cfg plan.ModelConfig) modelConfigResponse {
	return modelConfigResponse{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		HasAPIKey:   cfg.APIKey != "",
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Enabled:     cfg.Enabled,
	}
}

func (s *APIV1Service) ListModelConfigurations(c echo.Context) error {
	list, err := s.Companion.ListModelConfigurations(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]modelConfigResponse, 0, len(list))
	for _, cfg := range list {
		out = append(out, toModelConfigResponse(cfg))
	}
	return c.JSON(http.StatusOK, map[string]any{"configurations": out})
}

func (s *APIV1Service) CreateModelConfiguration(c echo.Context) error {
	var in companion.ModelConfigInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	cfg, err := s.Companion.CreateModelConfiguration(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toModelConfigResponse(*cfg))
}

func (s *APIV1Service) UpdateModelConfiguration(c echo.Context) error {
	id, err := pathInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in companion.ModelConfigInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	cfg, err := s.Companion.UpdateModelConfiguration(c.Request().Context(), int32(id), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toModelConfigResponse(*cfg))
}

type enableRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *APIV1Service) EnableModelConfiguration(c echo.Context) error {
	id, err := pathInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req enableRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	cfg, err := s.Companion.EnableModelConfiguration(c.Request().Context(), int32(id), req.Enabled)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toModelConfigResponse(*cfg))
}

func (s *APIV1Service) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Companion.Metrics().Snapshot())
}
