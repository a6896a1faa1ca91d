package vlm

import "fmt"

// EndpointError wraps transport-level failures reaching the inference
// endpoint: connection refused, DNS failures, cancelled or expired contexts.
type EndpointError struct {
	Err error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("inference endpoint error: %v", e.Err)
}

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *EndpointError) Unwrap() error { return e.Err }

// MalformedResponseError indicates the endpoint answered, but the payload
// could not be interpreted as a completion.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed endpoint response: %s", e.Detail)
}
