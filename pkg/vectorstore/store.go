// Package vectorstore persists embedded dataset chunks and serves
// nearest-neighbor queries over them.
package vectorstore

import "context"

// ChunkMetadata records which row window of the source table a stored
// document covers.
type ChunkMetadata struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
	RowCount int `json:"row_count"`
}

// Document is one embeddable unit: a rendered row-range chunk with its
// precomputed vector.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  ChunkMetadata
}

// Result is one nearest-neighbor match.
type Result struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
	Distance float32
}

// Collection is the per-dataset document group.
type Collection interface {
	// Add stores documents with their precomputed embeddings.
	Add(ctx context.Context, docs []Document) error

	// Query returns up to topK nearest neighbors of the embedding,
	// closest first.
	Query(ctx context.Context, embedding []float32, topK int) ([]Result, error)

	// Count returns the number of stored documents.
	Count() int
}

// Store manages one collection per dataset id.
type Store interface {
	// GetOrCreateCollection returns the dataset's collection, creating an
	// empty one if it does not exist.
	GetOrCreateCollection(datasetID string) (Collection, error)

	// DeleteCollection removes the dataset's collection and its documents.
	DeleteCollection(datasetID string) error
}
