package store

// Document is a retrievable chunk with its embedding, grouped by collection.
type Document struct {
	ID         int64
	Collection string
	Content    string
	Embedding  []float32
	CreatedTs  int64
}

type SearchDocuments struct {
	Collection string
	Embedding  []float32
	Limit      int
}

// DocumentMatch is a search hit; Score is cosine similarity.
type DocumentMatch struct {
	Document *Document
	Score    float64
}
