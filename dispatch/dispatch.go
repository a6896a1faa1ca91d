package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/visionmesh/ego"
	"github.com/hupe1980/visionmesh/frame"
	"github.com/hupe1980/visionmesh/internal/prompt"
	"github.com/hupe1980/visionmesh/logging"
	"github.com/hupe1980/visionmesh/metadata"
	"github.com/hupe1980/visionmesh/vlm"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// QueueSize bounds the FIFO queue. Submit fails with ErrQueueFull once
	// the buffer is saturated; it never blocks.
	QueueSize int
	// RequestTimeout bounds each remote call. Expiry delivers a
	// *RequestTimeoutError to the callback and the consumer moves on.
	RequestTimeout time.Duration
	// Sink receives successful results for external publishing. Nil disables
	// publishing.
	Sink metadata.Sink
	// Logger for dispatch telemetry.
	Logger logging.Logger
}

// CallOptions carries per-call overrides for Submit.
type CallOptions struct {
	// Params are merged over the ego's auxiliary parameters and handed to
	// the callback.
	Params map[string]any
}

// Dispatcher serializes inference calls to a single remote endpoint. One
// consumer goroutine drains the queue in FIFO order and performs at most one
// remote call at a time.
type Dispatcher struct {
	registry *ego.Registry
	model    vlm.Model
	router   *Router

	queue    chan *Request
	timeout  time.Duration
	sink     metadata.Sink
	logger   logging.Logger
	inFlight atomic.Bool
}

// New constructs a Dispatcher with optional overrides.
func New(registry *ego.Registry, model vlm.Model, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		QueueSize:      64,
		RequestTimeout: 60 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Dispatcher{
		registry: registry,
		model:    model,
		router:   NewRouter(opts.Logger),
		queue:    make(chan *Request, opts.QueueSize),
		timeout:  opts.RequestTimeout,
		sink:     opts.Sink,
		logger:   opts.Logger,
	}
}

// Router exposes the correlation table, mainly for introspection and tests.
func (d *Dispatcher) Router() *Router { return d.router }

// Submit enqueues a request under the named ego and returns immediately with
// a handle. It fails with *ego.UnknownEgoError for unregistered names and
// ErrQueueFull when the queue is saturated.
func (d *Dispatcher) Submit(egoName, prompt string, f *frame.Frame, optFns ...func(o *CallOptions)) (*Request, error) {
	var copts CallOptions
	for _, fn := range optFns {
		fn(&copts)
	}

	e, err := d.registry.Get(egoName)
	if err != nil {
		return nil, err
	}

	req := newRequest(uuid.NewString(), e, prompt, f, copts.Params)
	req.transition(StateQueued)
	d.router.Track(req)

	select {
	case d.queue <- req:
	default:
		d.router.Drop(req.CorrelationID())
		return nil, ErrQueueFull
	}

	d.logger.Debug("request queued",
		"correlation_id", req.CorrelationID(), "ego", egoName, "depth", len(d.queue))
	return req, nil
}

// Queue exposes the receive side of the FIFO queue so an owning loop (the
// worker) can multiplex it with other channels. Each received request must be
// passed to Dispatch on that same goroutine.
func (d *Dispatcher) Queue() <-chan *Request { return d.queue }

// Depth returns the number of queued, not yet consumed requests.
func (d *Dispatcher) Depth() int { return len(d.queue) }

// InFlight reports whether a remote call is currently running.
func (d *Dispatcher) InFlight() bool { return d.inFlight.Load() }

// Run is a standalone consumer loop for deployments without a worker: it
// drains the queue until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-d.queue:
			d.Dispatch(ctx, req)
		}
	}
}

// Dispatch executes one dequeued request: the remote call, resolution through
// the router, and the exactly-once callback. It must only run on the single
// consumer goroutine. Failures are converted into error results; Dispatch
// never panics outward and never returns an error to keep the loop alive.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) {
	if !req.transition(StateInFlight) {
		// Cancelled while queued: suppress the call and the callback.
		d.router.Drop(req.CorrelationID())
		req.finish(StateCancelled, ego.Result{
			CorrelationID: req.CorrelationID(),
			Ego:           req.ego.Name(),
		})
		d.logger.Info("request cancelled before dispatch", "correlation_id", req.CorrelationID())
		return
	}

	d.inFlight.Store(true)
	defer d.inFlight.Store(false)

	vreq := vlm.Request{
		SystemPrompt: d.renderPrompt(req, req.ego.SystemPrompt()),
		Prompt:       d.renderPrompt(req, req.prompt),
	}
	if req.frame != nil {
		vreq.Image = req.frame.Data
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.model.Complete(callCtx, vreq)
	logging.LogEndpointCall(d.logger, req.CorrelationID(), req.ego.Name(), time.Since(start), err)

	d.resolve(ctx, req.CorrelationID(), resp, err)
}

// renderPrompt expands template markers in a prompt using the merged
// auxiliary parameters. A broken template falls back to the raw text.
func (d *Dispatcher) renderPrompt(req *Request, text string) string {
	out, err := prompt.Render(text, req.ego.MergedParams(req.params))
	if err != nil {
		d.logger.Warn("prompt template failed, using raw text",
			"correlation_id", req.CorrelationID(), "error", err.Error())
		return text
	}
	return out
}

// invoke runs a callback, containing any panic so one misbehaving ego cannot
// take down the consumer loop.
func (d *Dispatcher) invoke(cb ego.Callback, res ego.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("ego callback panicked",
				"correlation_id", res.CorrelationID, "ego", res.Ego, "panic", r)
		}
	}()
	cb(res)
}

// resolve routes an outcome back to its request and fires the callback. Late
// and duplicate resolutions fall out of the router as discards.
func (d *Dispatcher) resolve(ctx context.Context, correlationID string, resp *vlm.Response, err error) {
	req, ok := d.router.Resolve(correlationID)
	if !ok {
		return
	}

	res := ego.Result{
		CorrelationID: correlationID,
		Ego:           req.ego.Name(),
		Params:        req.ego.MergedParams(req.params),
	}

	state := StateCompleted
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		state = StateTimedOut
		res.Err = &RequestTimeoutError{CorrelationID: correlationID, Timeout: d.timeout}
	case err != nil:
		state = StateFailed
		res.Err = err
	case resp == nil:
		state = StateFailed
		res.Err = &vlm.MalformedResponseError{Detail: "empty response"}
	default:
		res.Text = resp.Text
		res.Usage = resp.Usage
	}

	cb, first := req.finish(state, res)
	if !first {
		d.logger.Warn("dropping duplicate resolution", "correlation_id", correlationID)
		return
	}
	if cb == nil {
		if req.isCancelled() {
			d.logger.Info("suppressing callback for cancelled request", "correlation_id", correlationID)
		}
	} else {
		d.invoke(cb, res)
	}

	if res.Err != nil {
		d.logger.Error("request finished with error",
			"correlation_id", correlationID, "ego", res.Ego, "state", state.String(), "error", res.Err.Error())
		return
	}
	if d.sink != nil && !req.isCancelled() {
		if perr := d.sink.Publish(ctx, metadata.Result{
			CorrelationID: correlationID,
			Ego:           res.Ego,
			Text:          res.Text,
			Usage:         res.Usage,
			CreatedAt:     time.Now(),
		}); perr != nil {
			d.logger.Warn("metadata publish failed", "correlation_id", correlationID, "error", perr.Error())
		}
	}
}
