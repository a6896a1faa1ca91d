package dispatch

import (
	"fmt"
	"time"
)

// ErrQueueFull is returned by Submit when the FIFO queue is saturated.
// Submit never blocks; callers decide whether to retry or shed load.
var ErrQueueFull = fmt.Errorf("dispatch queue is full")

// RequestTimeoutError is delivered to the ego callback when the remote call
// exceeded the configured per-request timeout.
type RequestTimeoutError struct {
	CorrelationID string
	Timeout       time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %s", e.CorrelationID, e.Timeout)
}
