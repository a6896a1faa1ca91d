package dispatch

import (
	"sync"

	"github.com/hupe1980/visionmesh/ego"
	"github.com/hupe1980/visionmesh/frame"
)

// State tracks a Request through its lifecycle. Terminal states are reached
// exactly once.
type State int32

const (
	// StateCreated means the Request exists but is not yet queued.
	StateCreated State = iota
	// StateQueued means the Request sits in the dispatcher's FIFO queue.
	StateQueued
	// StateInFlight means the remote call is running.
	StateInFlight
	// StateCompleted is the successful terminal state.
	StateCompleted
	// StateFailed is the terminal state for endpoint and payload failures.
	StateFailed
	// StateTimedOut is the terminal state for requests that exceeded the
	// configured timeout.
	StateTimedOut
	// StateCancelled is the terminal state for requests cancelled before
	// dispatch; the callback is not invoked.
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateQueued:
		return "QUEUED"
	case StateInFlight:
		return "IN_FLIGHT"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Request is one submitted inference call. It doubles as the handle returned
// by Submit: callers may poll State, Cancel, or wait on Done.
type Request struct {
	id     string
	ego    *ego.Ego
	prompt string
	frame  *frame.Frame
	params map[string]any

	mu        sync.Mutex
	state     State
	cancelled bool
	result    ego.Result
	done      chan struct{}
}

func newRequest(id string, e *ego.Ego, prompt string, f *frame.Frame, params map[string]any) *Request {
	return &Request{
		id:     id,
		ego:    e,
		prompt: prompt,
		frame:  f,
		params: params,
		state:  StateCreated,
		done:   make(chan struct{}),
	}
}

// CorrelationID returns the unique id tying responses back to this request.
func (r *Request) CorrelationID() string { return r.id }

// Ego returns the ego this request was submitted under.
func (r *Request) Ego() *ego.Ego { return r.ego }

// State returns the current lifecycle state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done is closed once the request reaches a terminal state.
func (r *Request) Done() <-chan struct{} { return r.done }

// Result returns the terminal result. Only meaningful after Done is closed.
func (r *Request) Result() ego.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Cancel requests cancellation. Before the request goes in flight this
// prevents the remote call and suppresses the callback. After dispatch it is
// advisory only: the remote call is not interruptible, and the eventual
// outcome is discarded instead of invoking the callback. Returns true when
// the request had not yet gone in flight.
func (r *Request) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	return r.state == StateCreated || r.state == StateQueued
}

// transition moves the request to a non-terminal state. Returns false when
// the request is already terminal or cancelled (for the IN_FLIGHT move).
func (r *Request) transition(to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return false
	}
	if to == StateInFlight && r.cancelled {
		return false
	}
	r.state = to
	return true
}

// finish moves the request to a terminal state exactly once, recording the
// result. The returned callback is non-nil only on the first terminal
// transition and only when the callback has not been suppressed by Cancel.
func (r *Request) finish(to State, res ego.Result) (ego.Callback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return nil, false
	}
	r.state = to
	r.result = res
	close(r.done)
	if r.cancelled {
		return nil, true
	}
	return r.ego.Callback(), true
}

func (r *Request) terminalLocked() bool {
	switch r.state {
	case StateCompleted, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

func (r *Request) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}
