package metadata

import (
	"context"
	"sync"
)

// InMemorySink is a volatile Sink storing results in a process local slice.
// It is safe for concurrent access and best suited for tests or ephemeral
// demo services.
type InMemorySink struct {
	mu      sync.RWMutex
	results []Result
}

// NewInMemorySink constructs an empty in-memory sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// Publish implements Sink.
func (s *InMemorySink) Publish(_ context.Context, res Result) error {
	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()
	return nil
}

// Results returns a copy of all published results in publication order.
func (s *InMemorySink) Results() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}
