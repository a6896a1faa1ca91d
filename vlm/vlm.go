package vlm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Request captures one inference call: a system prompt from the ego, the
// caller's user prompt and an optional JPEG frame snapshot.
type Request struct {
	SystemPrompt string
	Prompt       string

	// Image holds raw JPEG bytes, or nil for a text-only call.
	Image []byte
}

// Usage captures token usage statistics reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the endpoint's answer to a single Request.
type Response struct {
	Text  string
	Usage *Usage
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface the dispatcher needs to drive generation.
// Complete blocks for the duration of the network round trip; the caller
// bounds it with the context deadline.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// HealthChecker is optionally implemented by models whose endpoint exposes a
// readiness probe. Ready returns nil when the endpoint can accept requests.
type HealthChecker interface {
	Ready(ctx context.Context) error
}

// CleanText normalizes raw completion text: end-of-sequence markers are
// removed, newlines collapsed and surrounding whitespace trimmed.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "</s>", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// It is safe for concurrent use.
type MockModel struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []Request
	err       error
	block     chan struct{}
	inFlight  int
	maxFlight int
}

// NewMockModel constructs an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{responses: make(map[string]string)}
}

// AddResponse registers a deterministic canned completion for a user prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	m.responses[prompt] = response
	m.mu.Unlock()
}

// FailWith makes every subsequent Complete call return err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// BlockUntil makes Complete wait for release (or context expiry) before
// answering. Used to exercise timeout paths.
func (m *MockModel) BlockUntil(release chan struct{}) {
	m.mu.Lock()
	m.block = release
	m.mu.Unlock()
}

// Calls returns a copy of all requests seen so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// MaxInFlight reports the highest number of concurrent Complete calls
// observed, letting tests assert the dispatcher's serialization invariant.
func (m *MockModel) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	block := m.block
	err := m.err
	full, ok := m.responses[req.Prompt]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &EndpointError{Err: ctx.Err()}
		}
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &EndpointError{Err: err}
	}
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", req.Prompt)
	}
	return &Response{Text: full}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock"}
}
