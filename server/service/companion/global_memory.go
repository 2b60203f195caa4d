package companion

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/quillmate/plugin/ai/event"
	"github.com/hrygo/quillmate/plugin/ai/memory"
	aierrors "github.com/hrygo/quillmate/server/internal/errors"
	"github.com/hrygo/quillmate/store"
)

// ListGlobalMemories returns global memories, most recently updated first.
func (s *Service) ListGlobalMemories(ctx context.Context, limit int) ([]*memory.GlobalMemory, error) {
	rows, err := s.store.ListGlobalMemories(ctx, &store.FindGlobalMemory{Limit: limit})
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to list global memories")
	}
	out := make([]*memory.GlobalMemory, 0, len(rows))
	for _, row := range rows {
		out = append(out, globalMemoryFromRow(row))
	}
	return out, nil
}

func (s *Service) CreateGlobalMemory(ctx context.Context, content string) (*memory.GlobalMemory, error) {
	m, err := memory.NewGlobalMemory(content)
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeInvalidArgument, "invalid global memory")
	}
	row, err := s.store.CreateGlobalMemory(ctx, &store.GlobalMemory{
		Content:   m.Content,
		CreatedTs: m.CreatedAt.UnixMilli(),
		UpdatedTs: m.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to create global memory")
	}
	m.MarkCreated(row.ID)
	s.publish(ctx, m.PullEvents())
	return m, nil
}

func (s *Service) UpdateGlobalMemory(ctx context.Context, id int64, content string) (*memory.GlobalMemory, error) {
	m, err := s.getGlobalMemory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.Update(content); err != nil {
		return nil, toAIError(err, aierrors.ErrCodeInvalidArgument, "invalid global memory")
	}
	row, err := s.store.UpdateGlobalMemory(ctx, &store.UpdateGlobalMemory{
		ID:        id,
		Content:   m.Content,
		UpdatedTs: m.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to update global memory")
	}
	if row == nil {
		return nil, aierrors.NotFound("global memory not found").WithContext("id", id)
	}
	s.publish(ctx, m.PullEvents())
	return m, nil
}

func (s *Service) DeleteGlobalMemory(ctx context.Context, id int64) error {
	m, err := s.getGlobalMemory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGlobalMemory(ctx, &store.DeleteGlobalMemory{ID: id}); err != nil {
		return toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to delete global memory")
	}
	m.MarkDeleted()
	s.publish(ctx, m.PullEvents())
	return nil
}

func (s *Service) getGlobalMemory(ctx context.Context, id int64) (*memory.GlobalMemory, error) {
	rows, err := s.store.ListGlobalMemories(ctx, &store.FindGlobalMemory{ID: &id, Limit: 1})
	if err != nil {
		return nil, toAIError(err, aierrors.ErrCodeStoreUnavailable, "failed to load global memory")
	}
	if len(rows) == 0 {
		return nil, aierrors.NotFound("global memory not found").WithContext("id", id)
	}
	return globalMemoryFromRow(rows[0]), nil
}

// publish delivers entity events after the change was persisted. Handler failures are logged only.
func (s *Service) publish(ctx context.Context, events []event.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.bus.PublishAll(ctx, events); err != nil {
		slog.Warn("domain event handlers failed", "count", len(events), "error", err)
	}
}

func globalMemoryFromRow(row *store.GlobalMemory) *memory.GlobalMemory {
	return &memory.GlobalMemory{
		ID:        row.ID,
		Content:   row.Content,
		CreatedAt: time.UnixMilli(row.CreatedTs),
		UpdatedAt: time.UnixMilli(row.UpdatedTs),
	}
}
