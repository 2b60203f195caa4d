package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillmate/store"
)

func TestCharacterStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	missing, err := ts.GetCharacter(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ts.UpsertCharacter(ctx, &store.Character{ID: "mira", Name: "Mira", Persona: "kind", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)
	_, err = ts.UpsertCharacter(ctx, &store.Character{ID: "mira", Name: "Mira", Persona: "kind and curious", Greeting: "hi", CreatedTs: 5, UpdatedTs: 5})
	require.NoError(t, err)

	got, err := ts.GetCharacter(ctx, "mira")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kind and curious", got.Persona)
	assert.Equal(t, "hi", got.Greeting)
	assert.Equal(t, int64(1), got.CreatedTs, "upsert keeps the original creation time")
}

func TestDocumentSearchUnsupportedOnSQLite(t *testing.T) {
	if getDriverFromEnv() != "sqlite" {
		t.Skip("sqlite only")
	}
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.SearchDocuments(ctx, &store.SearchDocuments{Collection: "articles", Embedding: []float32{0.1}, Limit: 2})
	assert.Error(t, err)
}
