package llm

import "context"

// MockClient is a configurable mock implementing Completer and Embedder.
// Set the function fields to control behavior in tests.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// EmbedTextsFunc is called when EmbedTexts (and EmbedText) is invoked.
	// If nil, returns a zero vector per input.
	EmbedTextsFunc func(ctx context.Context, inputs []string) ([][]float32, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Call tracking for verification.
	CompleteCalls   int
	EmbedTextsCalls int

	// Prompts records every prompt passed to Complete.
	Prompts []string
}

// NewMockClient creates a mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ModelName: "mock-model"}
}

// Complete implements Completer.
func (m *MockClient) Complete(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	m.CompleteCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// EmbedText implements Embedder.
func (m *MockClient) EmbedText(ctx context.Context, input string) ([]float32, error) {
	vectors, err := m.EmbedTexts(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts implements Embedder.
func (m *MockClient) EmbedTexts(ctx context.Context, inputs []string) ([][]float32, error) {
	m.EmbedTextsCalls++
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, inputs)
	}
	vectors := make([][]float32, len(inputs))
	for i := range vectors {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

// Model implements Completer.
func (m *MockClient) Model() string {
	return m.ModelName
}
