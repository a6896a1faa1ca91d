package dispatch

import (
	"sync"

	"github.com/hupe1980/visionmesh/logging"
)

// Router matches asynchronous resolutions to their originating Request via
// the correlation id. A resolution for an unknown id (already resolved,
// cancelled or expired) is logged and discarded; it never disturbs the
// consumer loop.
type Router struct {
	mu          sync.Mutex
	outstanding map[string]*Request
	logger      logging.Logger
}

// NewRouter constructs an empty router.
func NewRouter(logger logging.Logger) *Router {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Router{outstanding: make(map[string]*Request), logger: logger}
}

// Track registers a request as outstanding. The correlation id must not
// collide with another outstanding request; uuid generation guarantees this
// in practice.
func (rt *Router) Track(req *Request) {
	rt.mu.Lock()
	rt.outstanding[req.CorrelationID()] = req
	rt.mu.Unlock()
}

// Resolve removes and returns the outstanding request for id. The second
// return is false for late or duplicate resolutions, which are logged and
// dropped.
func (rt *Router) Resolve(id string) (*Request, bool) {
	rt.mu.Lock()
	req, ok := rt.outstanding[id]
	if ok {
		delete(rt.outstanding, id)
	}
	rt.mu.Unlock()
	if !ok {
		rt.logger.Warn("discarding response with no outstanding request", "correlation_id", id)
		return nil, false
	}
	return req, true
}

// Drop removes a request without resolving it (cancellation path).
func (rt *Router) Drop(id string) {
	rt.mu.Lock()
	delete(rt.outstanding, id)
	rt.mu.Unlock()
}

// Outstanding returns the number of tracked requests.
func (rt *Router) Outstanding() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.outstanding)
}
