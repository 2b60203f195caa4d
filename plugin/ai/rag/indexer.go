package rag

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/quillmate/plugin/ai/llm"
	"github.com/hrygo/quillmate/plugin/ai/markdown"
	"github.com/hrygo/quillmate/store"
)

// maxConcurrentEmbeddings bounds the embedding calls of one IndexArticle.
const maxConcurrentEmbeddings = 3

// DocumentWriter is the store surface used by Indexer.
type DocumentWriter interface {
	CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error)
}

// Indexer chunks markdown articles, embeds every chunk and stores it in a collection.
type Indexer struct {
	embedder llm.Embedder
	writer   DocumentWriter
	chunker  *Chunker
}

func NewIndexer(embedder llm.Embedder, writer DocumentWriter) *Indexer {
	return &Indexer{embedder: embedder, writer: writer, chunker: NewChunker()}
}

// IndexArticle stores the article as embedded chunks and returns the number of chunks written.
// Nothing is written unless every chunk was embedded.
func (i *Indexer) IndexArticle(ctx context.Context, collection, source string) (int, error) {
	if collection == "" {
		return 0, errors.New("collection is required")
	}
	chunks := i.chunker.Chunk(markdown.PlainText(source))
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbeddings)
	for idx, chunk := range chunks {
		g.Go(func() error {
			vec, err := i.embedder.Embed(gctx, chunk)
			if err != nil {
				return errors.Wrapf(err, "failed to embed chunk %d", idx)
			}
			embeddings[idx] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for idx, chunk := range chunks {
		if _, err := i.writer.CreateDocument(ctx, &store.Document{
			Collection: collection,
			Content:    chunk,
			Embedding:  embeddings[idx],
		}); err != nil {
			return idx, errors.Wrap(err, "failed to store document")
		}
	}
	slog.Debug("article indexed", "collection", collection, "chunks", len(chunks))
	return len(chunks), nil
}
