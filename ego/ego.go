package ego

import (
	"sync"

	"github.com/hupe1980/visionmesh/vlm"
)

// Result is the terminal outcome of one inference request, delivered to the
// registered callback exactly once. Err is set for connection, timeout and
// malformed-payload failures; Text and Usage are only valid when Err is nil.
type Result struct {
	CorrelationID string
	Ego           string
	Text          string
	Usage         *vlm.Usage
	Err           error

	// Params merges the ego's auxiliary parameters with any per-call
	// parameters; per-call values win on key collision.
	Params map[string]any
}

// Callback consumes a finished Result. Callbacks run on the worker goroutine
// that owns engine and video state, so they may touch that state freely but
// must not block for long.
type Callback func(Result)

// Ego is a named persona: a system prompt plus a completion callback and
// auxiliary parameters. Everything except the system prompt is immutable
// after registration.
type Ego struct {
	name     string
	callback Callback
	params   map[string]any

	mu           sync.RWMutex
	systemPrompt string
}

// Name returns the unique registry key of this ego.
func (e *Ego) Name() string { return e.name }

// Callback returns the registered completion callback (may be nil).
func (e *Ego) Callback() Callback { return e.callback }

// SystemPrompt returns the current system prompt.
func (e *Ego) SystemPrompt() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.systemPrompt
}

// SetPrompt replaces the system prompt. Intended to be called from the worker
// goroutine in response to a bridge command.
func (e *Ego) SetPrompt(prompt string) {
	e.mu.Lock()
	e.systemPrompt = prompt
	e.mu.Unlock()
}

// MergedParams returns the ego's auxiliary parameters overlaid with the
// per-call parameters; per-call values win.
func (e *Ego) MergedParams(callParams map[string]any) map[string]any {
	if len(e.params) == 0 && len(callParams) == 0 {
		return nil
	}
	merged := make(map[string]any, len(e.params)+len(callParams))
	for k, v := range e.params {
		merged[k] = v
	}
	for k, v := range callParams {
		merged[k] = v
	}
	return merged
}

// Registry maps names to egos. Registration is expected to happen before
// first use; reads are safe from any goroutine.
type Registry struct {
	mu   sync.RWMutex
	egos map[string]*Ego
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{egos: make(map[string]*Ego)}
}

// Add registers a new ego. It fails with *DuplicateEgoError when the name is
// already taken.
func (r *Registry) Add(name, systemPrompt string, cb Callback, params map[string]any) (*Ego, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.egos[name]; exists {
		return nil, &DuplicateEgoError{Name: name}
	}
	e := &Ego{name: name, systemPrompt: systemPrompt, callback: cb, params: params}
	r.egos[name] = e
	return e, nil
}

// Get returns the ego registered under name, or *UnknownEgoError.
func (r *Registry) Get(name string) (*Ego, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.egos[name]
	if !ok {
		return nil, &UnknownEgoError{Name: name}
	}
	return e, nil
}

// Names returns the registered ego names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.egos))
	for name := range r.egos {
		names = append(names, name)
	}
	return names
}
