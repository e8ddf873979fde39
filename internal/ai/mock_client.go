package ai

import (
	"context"
	"strings"
	"sync"
)

// MockTextGenerator is a canned TextGenerator for tests.
type MockTextGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func NewMockTextGenerator() *MockTextGenerator {
	return &MockTextGenerator{}
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	// Default: echo the first line of the prompt.
	first, _, _ := strings.Cut(prompt, "\n")
	return "Subject: Hello\n\n" + first, nil
}

func (m *MockTextGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *MockTextGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
