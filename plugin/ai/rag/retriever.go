package rag

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/plan"
	"github.com/hrygo/quillmate/store"
)

// Document is a retrieved chunk and its similarity to the query.
type Document struct {
	ID      int64
	Content string
	Score   float64
}

// Retriever finds documents relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, spec plan.RagSpec) ([]Document, error)
}

// DocumentSearcher is the store surface used by VectorRetriever.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, search *store.SearchDocuments) ([]*store.DocumentMatch, error)
}

// VectorRetriever embeds the query and runs a similarity search over a collection.
type VectorRetriever struct {
	embedder llm.Embedder
	searcher DocumentSearcher
}

func NewVectorRetriever(embedder llm.Embedder, searcher DocumentSearcher) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, searcher: searcher}
}

// Retrieve returns up to spec.TopK documents scoring at least spec.Threshold, best first.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, spec plan.RagSpec) ([]Document, error) {
	if !spec.IsValid() {
		return nil, errors.New("invalid rag spec")
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}

	matches, err := r.searcher.SearchDocuments(ctx, &store.SearchDocuments{
		Collection: spec.Collection,
		Embedding:  embedding,
		Limit:      spec.TopK,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search documents")
	}

	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		if m.Score < spec.Threshold {
			continue
		}
		docs = append(docs, Document{ID: m.Document.ID, Content: m.Document.Content, Score: m.Score})
	}
	return docs, nil
}

// FormatDocuments renders documents as a reference block for the system prompt.
func FormatDocuments(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("### Reference material\n")
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(d.Content)
	}
	return sb.String()
}

var _ Retriever = (*VectorRetriever)(nil)
