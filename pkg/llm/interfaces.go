// Package llm provides provider-agnostic access to chat-completion and
// embedding models.
package llm

import "context"

// Completer generates free-form text from a prompt. All engine prompts
// expect either plain text or a single JSON object, possibly wrapped in
// code fences that callers strip with ExtractJSON / StripCodeFences.
type Completer interface {
	// Complete generates a chat completion for the prompt.
	Complete(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// Model returns the configured model name.
	Model() string
}

// Embedder turns texts into vectors, one per input, order-preserving.
type Embedder interface {
	// EmbedText generates an embedding vector for a single input.
	EmbedText(ctx context.Context, input string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple inputs.
	EmbedTexts(ctx context.Context, inputs []string) ([][]float32, error)
}

// Compile-time interface checks.
var (
	_ Completer = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
	_ Completer = (*AnthropicClient)(nil)
)
