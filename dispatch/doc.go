// Package dispatch implements the asynchronous request pipeline between egos
// and the remote vision-language endpoint.
//
// Submit enqueues a Request and returns immediately; a single consumer drains
// the queue in strict FIFO order and performs exactly one remote call at a
// time. That serialization is deliberate backpressure for inference backends
// that only handle one request at once. Terminal outcomes (completed, failed,
// timed out) fire the ego's callback exactly once on the consumer goroutine;
// failures are delivered as typed errors in the result, never panics, so the
// consumer loop survives any single request.
//
// The Router ties asynchronous resolutions back to their originating Request
// via the correlation id; late or duplicate resolutions are logged and
// discarded.
package dispatch
