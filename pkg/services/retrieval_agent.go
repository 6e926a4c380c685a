package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/llm"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
	"github.com/tessellate-ai/analyst-engine/pkg/prompts"
	"github.com/tessellate-ai/analyst-engine/pkg/vectorstore"
)

// retrievalTopK is how many chunks are pulled per question.
const retrievalTopK = 5

// DocumentAnswer is the retrieval agent's grounded answer for one dataset.
type DocumentAnswer struct {
	Answer     string              `json:"answer"`
	Chart      *models.ChartConfig `json:"chart,omitempty"`
	ChunksUsed int                 `json:"chunksUsed"`
	Contexts   []string            `json:"-"`
}

// groundedResponse is the JSON shape the grounded-answer prompt requests.
type groundedResponse struct {
	Answer string              `json:"answer"`
	Chart  *models.ChartConfig `json:"chart"`
}

// RetrievalAgent answers questions from embedded dataset chunks.
type RetrievalAgent struct {
	completer llm.Completer
	embedder  llm.Embedder
	store     vectorstore.Store
	logger    *zap.Logger
}

// NewRetrievalAgent creates a retrieval agent over the vector store.
func NewRetrievalAgent(completer llm.Completer, embedder llm.Embedder, store vectorstore.Store, logger *zap.Logger) *RetrievalAgent {
	return &RetrievalAgent{completer: completer, embedder: embedder, store: store, logger: logger}
}

// Query retrieves the nearest chunks of one dataset and produces an answer
// grounded in them. A dataset with no stored chunks yields
// apperrors.ErrDatasetNotProcessed.
func (a *RetrievalAgent) Query(ctx context.Context, datasetID, question string) (*DocumentAnswer, error) {
	col, err := a.store.GetOrCreateCollection(datasetID)
	if err != nil {
		return nil, err
	}
	if col.Count() == 0 {
		return nil, apperrors.ErrDatasetNotProcessed
	}

	embedding, err := a.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := col.Query(ctx, embedding, retrievalTopK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, apperrors.ErrDatasetNotProcessed
	}

	contexts := make([]string, len(matches))
	for i, m := range matches {
		contexts[i] = fmt.Sprintf("[Rows %d-%d]\n%s", m.Metadata.StartRow, m.Metadata.EndRow-1, m.Text)
	}

	prompt := prompts.BuildGroundedAnswerPrompt(question, contexts)
	raw, err := a.completer.Complete(ctx, prompt, prompts.AnalysisSystemMessage, 0.2)
	if err != nil {
		return nil, fmt.Errorf("grounded answer failed: %w", err)
	}

	answer := &DocumentAnswer{Contexts: contexts, ChunksUsed: len(matches)}
	parsed, perr := llm.ParseJSONResponse[groundedResponse](raw)
	if perr != nil || strings.TrimSpace(parsed.Answer) == "" {
		// A model that ignored the JSON contract still gave prose; use it.
		a.logger.Debug("grounded answer was not valid JSON, using raw text",
			zap.String("dataset_id", datasetID))
		answer.Answer = strings.TrimSpace(llm.StripCodeFences(raw))
		return answer, nil
	}

	answer.Answer = parsed.Answer
	answer.Chart = parsed.Chart
	return answer, nil
}
