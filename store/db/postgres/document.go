package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	stmt := `INSERT INTO document (collection, content, embedding, created_ts) VALUES (` + placeholders(4) + `) RETURNING id`
	vector := pgvector.NewVector(create.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt, create.Collection, create.Content, vector, create.CreatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return create, nil
}

// SearchDocuments orders a collection by cosine distance to the query embedding.
func (d *DB) SearchDocuments(ctx context.Context, search *store.SearchDocuments) ([]*store.DocumentMatch, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 4
	}

	query := `
		SELECT id, collection, content, created_ts, 1 - (embedding <=> $1) AS score
		FROM document
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3`
	vector := pgvector.NewVector(search.Embedding)
	rows, err := d.db.QueryContext(ctx, query, vector, search.Collection, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search documents")
	}
	defer rows.Close()

	matches := []*store.DocumentMatch{}
	for rows.Next() {
		doc := &store.Document{}
		var score float64
		if err := rows.Scan(&doc.ID, &doc.Collection, &doc.Content, &doc.CreatedTs, &score); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		matches = append(matches, &store.DocumentMatch{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate documents")
	}
	return matches, nil
}
