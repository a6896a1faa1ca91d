package vst

import "fmt"

// StreamAddError is returned by AddStream when the video store rejects the
// stream: a name conflict, an unreachable source, or any other server-side
// refusal.
type StreamAddError struct {
	Name     string
	Reason   string
	Conflict bool
	Err      error
}

func (e *StreamAddError) Error() string {
	return fmt.Sprintf("adding stream %q: %s", e.Name, e.Reason)
}

// Unwrap exposes the underlying transport error, if any.
func (e *StreamAddError) Unwrap() error { return e.Err }
