package llm

import "context"

// MockGenerator is a configurable mock for testing pipeline behavior.
// Set GenerateQueryFunc to control the returned candidate.
type MockGenerator struct {
	// GenerateQueryFunc is called when GenerateQuery is invoked.
	// If nil, returns an empty candidate and nil error.
	GenerateQueryFunc func(ctx context.Context, system, prompt string) (string, error)

	// GenerateQueryCalls counts invocations for verification.
	GenerateQueryCalls int

	// LastSystem and LastPrompt record the most recent request.
	LastSystem string
	LastPrompt string
}

// GenerateQuery implements QueryGenerator.
func (m *MockGenerator) GenerateQuery(ctx context.Context, system, prompt string) (string, error) {
	m.GenerateQueryCalls++
	m.LastSystem = system
	m.LastPrompt = prompt
	if m.GenerateQueryFunc != nil {
		return m.GenerateQueryFunc(ctx, system, prompt)
	}
	return "", nil
}

// Model implements QueryGenerator.
func (m *MockGenerator) Model() string {
	return "mock-model"
}

var _ QueryGenerator = (*MockGenerator)(nil)
