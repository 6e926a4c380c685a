package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// collectionPrefix keeps dataset collections namespaced inside the shared DB.
const collectionPrefix = "dataset_"

// ChromemStore is a Store backed by an embedded chromem-go database.
type ChromemStore struct {
	db     *chromem.DB
	logger *zap.Logger
}

// NewPersistent opens (or creates) a chromem database rooted at path.
func NewPersistent(path string, logger *zap.Logger) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store at %s: %w", path, err)
	}
	return &ChromemStore{db: db, logger: logger}, nil
}

// NewInMemory returns a store that keeps everything in process memory.
// Used by tests and ephemeral deployments.
func NewInMemory(logger *zap.Logger) *ChromemStore {
	return &ChromemStore{db: chromem.NewDB(), logger: logger}
}

// GetOrCreateCollection returns the collection for a dataset id.
func (s *ChromemStore) GetOrCreateCollection(datasetID string) (Collection, error) {
	col, err := s.db.GetOrCreateCollection(collectionPrefix+datasetID, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection for dataset %s: %w", datasetID, err)
	}
	return &chromemCollection{col: col, logger: s.logger.With(zap.String("dataset_id", datasetID))}, nil
}

// DeleteCollection removes the dataset's collection. Deleting a collection
// that does not exist is not an error.
func (s *ChromemStore) DeleteCollection(datasetID string) error {
	if err := s.db.DeleteCollection(collectionPrefix + datasetID); err != nil {
		return fmt.Errorf("failed to delete collection for dataset %s: %w", datasetID, err)
	}
	return nil
}

// precomputedOnly rejects any attempt to embed inside the store. All
// embeddings are produced upstream by the LLM client.
func precomputedOnly(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("vector store requires precomputed embeddings")
}

type chromemCollection struct {
	col    *chromem.Collection
	logger *zap.Logger
}

func (c *chromemCollection) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	converted := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		converted = append(converted, chromem.Document{
			ID:        d.ID,
			Metadata:  metadataToMap(d.Metadata),
			Embedding: d.Embedding,
			Content:   d.Text,
		})
	}
	if err := c.col.AddDocuments(ctx, converted, 1); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	c.logger.Debug("added documents to collection", zap.Int("count", len(docs)))
	return nil
}

func (c *chromemCollection) Query(ctx context.Context, embedding []float32, topK int) ([]Result, error) {
	count := c.col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	matches, err := c.col.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			ID:       m.ID,
			Text:     m.Content,
			Metadata: metadataFromMap(m.Metadata),
			Distance: 1 - m.Similarity,
		})
	}
	return results, nil
}

func (c *chromemCollection) Count() int {
	return c.col.Count()
}

func metadataToMap(m ChunkMetadata) map[string]string {
	return map[string]string{
		"start_row": strconv.Itoa(m.StartRow),
		"end_row":   strconv.Itoa(m.EndRow),
		"row_count": strconv.Itoa(m.RowCount),
	}
}

func metadataFromMap(m map[string]string) ChunkMetadata {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return ChunkMetadata{
		StartRow: atoi(m["start_row"]),
		EndRow:   atoi(m["end_row"]),
		RowCount: atoi(m["row_count"]),
	}
}
