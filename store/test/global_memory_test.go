package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillmate/store"
)

func TestGlobalMemoryStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	first, err := ts.CreateGlobalMemory(ctx, &store.GlobalMemory{Content: "prefer short replies", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)
	_, err = ts.CreateGlobalMemory(ctx, &store.GlobalMemory{Content: "owner likes tea", CreatedTs: 2, UpdatedTs: 2})
	require.NoError(t, err)

	list, err := ts.ListGlobalMemories(ctx, &store.FindGlobalMemory{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "owner likes tea", list[0].Content)

	updated, err := ts.UpdateGlobalMemory(ctx, &store.UpdateGlobalMemory{ID: first.ID, Content: "prefer very short replies", UpdatedTs: 3})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, int64(1), updated.CreatedTs)

	list, err = ts.ListGlobalMemories(ctx, &store.FindGlobalMemory{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "prefer very short replies", list[0].Content)

	missing, err := ts.UpdateGlobalMemory(ctx, &store.UpdateGlobalMemory{ID: 9999, Content: "x", UpdatedTs: 4})
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, ts.DeleteGlobalMemory(ctx, &store.DeleteGlobalMemory{ID: first.ID}))
	list, err = ts.ListGlobalMemories(ctx, &store.FindGlobalMemory{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
