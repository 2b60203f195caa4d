package sqlite

import (
	"context"
	"errors"

	"github.com/hrygo/quillmate/store"
)

// ErrVectorSearchNotSupported is returned for document operations on SQLite.
// Use PostgreSQL with pgvector for retrieval augmentation.
var ErrVectorSearchNotSupported = errors.New("vector search is not supported on SQLite. Use PostgreSQL with pgvector for RAG")

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	return nil, ErrVectorSearchNotSupported
}

func (d *DB) SearchDocuments(ctx context.Context, search *store.SearchDocuments) ([]*store.DocumentMatch, error) {
	return nil, ErrVectorSearchNotSupported
}
