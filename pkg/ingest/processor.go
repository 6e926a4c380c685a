package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/catalog"
	"github.com/tessellate-ai/analyst-engine/pkg/llm"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
	"github.com/tessellate-ai/analyst-engine/pkg/vectorstore"
)

// Processor runs the full ingestion pipeline: fetch, parse, profile, chunk,
// embed, store, and register.
type Processor struct {
	embedder  llm.Embedder
	store     vectorstore.Store
	catalog   *catalog.Catalog
	chunkSize int
	logger    *zap.Logger
}

// NewProcessor wires an ingestion pipeline. chunkSize <= 0 uses the default.
func NewProcessor(embedder llm.Embedder, store vectorstore.Store, cat *catalog.Catalog, chunkSize int, logger *zap.Logger) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Processor{
		embedder:  embedder,
		store:     store,
		catalog:   cat,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Result describes a completed ingestion.
type Result struct {
	DatasetID  string  `json:"datasetId"`
	Name       string  `json:"name"`
	ChunkCount int     `json:"chunkCount"`
	Profile    Profile `json:"profile"`
}

// Process downloads a file, embeds its row chunks, and registers the
// dataset. A provided datasetID makes the call idempotent against repeated
// uploads; an empty one gets a fresh UUID.
func (p *Processor) Process(ctx context.Context, userID, fileURL, fileName, datasetID string) (*Result, error) {
	if datasetID == "" {
		datasetID = uuid.NewString()
	}
	start := time.Now()

	data, err := Fetch(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	table, err := Parse(data, FormatFromName(fileName))
	if err != nil {
		return nil, err
	}

	profile := BuildProfile(table)
	chunks := ChunkRows(table, p.chunkSize)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed dataset chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectorstore.Document{
			ID:        fmt.Sprintf("%s_chunk_%d", datasetID, i),
			Text:      c.Text,
			Embedding: embeddings[i],
			Metadata:  c.Metadata,
		}
	}

	col, err := p.store.GetOrCreateCollection(datasetID)
	if err != nil {
		return nil, err
	}
	if err := col.Add(ctx, docs); err != nil {
		return nil, err
	}

	p.catalog.RegisterDataset(ctx, userID, models.SourceEntry{
		ID:   datasetID,
		Name: fileName,
		Metadata: map[string]any{
			"rowCount":    profile.RowCount,
			"columnCount": profile.ColumnCount,
			"columns":     profile.Columns,
			"chunkCount":  len(chunks),
		},
		RegisteredAt: time.Now().UTC(),
	})

	p.logger.Info("dataset processed",
		zap.String("user_id", userID),
		zap.String("dataset_id", datasetID),
		zap.Int("rows", profile.RowCount),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		DatasetID:  datasetID,
		Name:       fileName,
		ChunkCount: len(chunks),
		Profile:    profile,
	}, nil
}

// Delete removes a dataset's vectors and its catalog entry.
func (p *Processor) Delete(ctx context.Context, userID, datasetID string) error {
	if err := p.store.DeleteCollection(datasetID); err != nil {
		return err
	}
	p.catalog.Remove(ctx, userID, datasetID, models.SourceKindCSV)
	p.logger.Info("dataset deleted",
		zap.String("user_id", userID),
		zap.String("dataset_id", datasetID))
	return nil
}

// Info returns stored chunk count and catalog metadata for a dataset.
func (p *Processor) Info(ctx context.Context, userID, datasetID string) (map[string]any, error) {
	uc := p.catalog.GetUserContext(ctx, userID)
	for _, entry := range uc.CSVFiles {
		if entry.ID == datasetID {
			col, err := p.store.GetOrCreateCollection(datasetID)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"datasetId":    entry.ID,
				"name":         entry.Name,
				"registeredAt": entry.RegisteredAt,
				"chunkCount":   col.Count(),
				"metadata":     entry.Metadata,
			}, nil
		}
	}
	return nil, fmt.Errorf("dataset %s: %w", datasetID, apperrors.ErrNotFound)
}
