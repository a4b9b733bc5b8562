package model

import (
	"context"
	"fmt"
	"sync"
)

// CompletionSettings are the sampling parameters sent with every completion
// request. Zero values are forwarded as is; backends decide how to treat
// them.
type CompletionSettings struct {
	Temperature      float64  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP             float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	PresencePenalty  float64  `json:"presence_penalty" yaml:"presence_penalty" toml:"presence_penalty"`
	FrequencyPenalty float64  `json:"frequency_penalty" yaml:"frequency_penalty" toml:"frequency_penalty"`
	MaxTokens        int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	StopSequences    []string `json:"stop_sequences" yaml:"stop_sequences" toml:"stop_sequences"`
}

// DefaultCompletionSettings returns deterministic settings with a small
// token budget.
func DefaultCompletionSettings() CompletionSettings {
	return CompletionSettings{MaxTokens: 256}
}

// Info contains metadata about a backend implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Completion turns a rendered prompt into text. Implementations honour ctx
// cancellation and return *Error for provider failures.
type Completion interface {
	Complete(ctx context.Context, prompt string, settings CompletionSettings) (string, error)

	// Info returns information about the backend implementation.
	Info() Info
}

// Embedding turns texts into vectors, one per input, in input order.
type Embedding interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Info returns information about the backend implementation.
	Info() Info
}

// CompletionCall records a single MockCompletion request.
type CompletionCall struct {
	Prompt   string
	Settings CompletionSettings
}

// MockCompletion is a lightweight in-memory Completion useful for tests and
// examples. Canned responses are matched by exact prompt; unknown prompts
// are answered by Fallback or with an echo of the prompt.
type MockCompletion struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	errs      []error
	calls     []CompletionCall

	// Fallback produces the response for prompts without a canned answer.
	Fallback func(prompt string) string
}

// NewMockCompletion constructs a MockCompletion.
func NewMockCompletion(name string) *MockCompletion {
	return &MockCompletion{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockCompletion) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// QueueError makes the next calls fail with the given errors, in order.
func (m *MockCompletion) QueueError(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
}

// Calls returns a copy of the recorded requests.
func (m *MockCompletion) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete implements Completion.
func (m *MockCompletion) Complete(ctx context.Context, prompt string, settings CompletionSettings) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, CompletionCall{Prompt: prompt, Settings: settings})

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}

	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}

	if m.Fallback != nil {
		return m.Fallback(prompt), nil
	}

	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// Info implements Completion.
func (m *MockCompletion) Info() Info { return m.info }
