// Package bridge implements the synchronous command/reply channel between
// façade (request-serving) goroutines and the single worker goroutine that
// owns engine and video state.
//
// A façade goroutine calls Send and blocks until the worker replies to the
// command's single-use ReplySlot or the mandatory timeout elapses. The worker
// receives commands through a blocking wait, never a busy poll. The bridge is
// the only channel through which façade goroutines affect worker-owned state,
// which removes the need for fine-grained locking around that state.
//
// Commands are delivered in submission order; replies may complete out of
// order relative to other commands. Correctness depends only on each
// command's own slot.
package bridge
