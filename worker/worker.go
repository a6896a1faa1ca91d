package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/visionmesh/bridge"
	"github.com/hupe1980/visionmesh/dispatch"
	"github.com/hupe1980/visionmesh/ego"
	"github.com/hupe1980/visionmesh/frame"
	"github.com/hupe1980/visionmesh/logging"
	"github.com/hupe1980/visionmesh/vlm"
)

// Default verbs understood by the worker. Deployments extend the table with
// RegisterHandler; the stream control verbs are wired by
// RegisterStreamHandlers when a video store is configured.
const (
	VerbAnalyze      bridge.Verb = "analyze"
	VerbSetEgoPrompt bridge.Verb = "set_ego_prompt"
	VerbQueryStatus  bridge.Verb = "query_status"
	VerbStartStream  bridge.Verb = "start_stream"
	VerbStopStream   bridge.Verb = "stop_stream"
)

// Handler executes one command on the worker goroutine. The returned value is
// replied to the sender; a returned error is replied as a value instead. A
// handler that has already replied (or deferred the reply to a callback)
// returns ErrReplyDeferred.
type Handler func(ctx context.Context, w *Worker, cmd *bridge.Command) (any, error)

// ErrReplyDeferred tells the loop not to reply: the handler passed the
// command on (typically into per-call params, for an ego callback to answer).
var ErrReplyDeferred = fmt.Errorf("reply deferred")

// AnalyzePayload is the payload shape for VerbAnalyze.
type AnalyzePayload struct {
	Ego    string
	Prompt string
	// Params is merged into the ego's auxiliary parameters for the callback.
	Params map[string]any
}

// SetPromptPayload is the payload shape for VerbSetEgoPrompt.
type SetPromptPayload struct {
	Ego    string
	Prompt string
}

// StartStreamPayload is the payload shape for VerbStartStream.
type StartStreamPayload struct {
	URL      string
	Name     string
	Location string
}

// StopStreamPayload is the payload shape for VerbStopStream.
type StopStreamPayload struct {
	Name string
}

// Status is the reply value of VerbQueryStatus.
type Status struct {
	Egos           []string `json:"egos"`
	QueueDepth     int      `json:"queue_depth"`
	InFlight       bool     `json:"in_flight"`
	FrameAvailable bool     `json:"frame_available"`
	EndpointReady  *bool    `json:"endpoint_ready,omitempty"`
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Source supplies the current frame for analyze commands. Nil means
	// text-only requests.
	Source frame.Source
	// HealthTimeout bounds the endpoint readiness probe in query_status.
	HealthTimeout time.Duration
	// Logger for worker telemetry.
	Logger logging.Logger
}

// Worker owns engine and video state and runs the combined consumer loop.
type Worker struct {
	bridge     *bridge.Bridge
	dispatcher *dispatch.Dispatcher
	registry   *ego.Registry
	model      vlm.Model

	source        frame.Source
	healthTimeout time.Duration
	logger        logging.Logger

	mu       sync.RWMutex
	handlers map[bridge.Verb]Handler
}

// New constructs a Worker with the default handler table installed.
func New(b *bridge.Bridge, d *dispatch.Dispatcher, registry *ego.Registry, model vlm.Model, optFns ...func(o *Options)) *Worker {
	opts := Options{
		HealthTimeout: 2 * time.Second,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	w := &Worker{
		bridge:        b,
		dispatcher:    d,
		registry:      registry,
		model:         model,
		source:        opts.Source,
		healthTimeout: opts.HealthTimeout,
		handlers:      make(map[bridge.Verb]Handler),
		logger:        opts.Logger,
	}
	w.handlers[VerbAnalyze] = handleAnalyze
	w.handlers[VerbSetEgoPrompt] = handleSetPrompt
	w.handlers[VerbQueryStatus] = handleStatus
	return w
}

// RegisterHandler installs (or replaces) the handler for a verb. Safe to
// call while the loop is running.
func (w *Worker) RegisterHandler(verb bridge.Verb, h Handler) {
	w.mu.Lock()
	w.handlers[verb] = h
	w.mu.Unlock()
}

// Dispatcher returns the dispatcher owned by this worker's loop.
func (w *Worker) Dispatcher() *dispatch.Dispatcher { return w.dispatcher }

// Registry returns the ego registry.
func (w *Worker) Registry() *ego.Registry { return w.registry }

// Source returns the frame source, or nil.
func (w *Worker) Source() frame.Source { return w.source }

// Latest returns the newest frame if a source is configured and has one.
func (w *Worker) Latest() (*frame.Frame, bool) {
	if w.source == nil {
		return nil, false
	}
	f, ok := w.source.Latest()
	if !ok {
		return nil, false
	}
	return &f, true
}

// Run executes the worker loop until ctx is done. It is the only goroutine
// allowed to touch engine/video state, run handlers and fire ego callbacks.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "model", w.model.Info().Name, "provider", w.model.Info().Provider)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return ctx.Err()
		case cmd := <-w.bridge.Commands():
			cmd.MarkDelivered()
			w.handle(ctx, cmd)
		case req := <-w.dispatcher.Queue():
			w.dispatcher.Dispatch(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, cmd *bridge.Command) {
	w.mu.RLock()
	h, ok := w.handlers[cmd.Verb()]
	w.mu.RUnlock()
	if !ok {
		w.logger.Warn("unknown command verb", "command_id", cmd.ID(), "verb", string(cmd.Verb()))
		w.reply(cmd, fmt.Errorf("unknown verb %q", cmd.Verb()))
		return
	}

	value, err := h(ctx, w, cmd)
	switch {
	case errors.Is(err, ErrReplyDeferred):
		return
	case err != nil:
		w.logger.Warn("command handler failed",
			"command_id", cmd.ID(), "verb", string(cmd.Verb()), "error", err.Error())
		w.reply(cmd, err)
	default:
		w.reply(cmd, value)
	}
}

func (w *Worker) reply(cmd *bridge.Command, value any) {
	if err := cmd.Reply(value); err != nil {
		w.logger.Error("reply failed", "command_id", cmd.ID(), "error", err.Error())
	}
}

func handleAnalyze(_ context.Context, w *Worker, cmd *bridge.Command) (any, error) {
	payload, ok := cmd.Payload().(AnalyzePayload)
	if !ok {
		return nil, fmt.Errorf("analyze: unexpected payload type %T", cmd.Payload())
	}
	f, _ := w.Latest()
	req, err := w.dispatcher.Submit(payload.Ego, payload.Prompt, f, func(o *dispatch.CallOptions) {
		o.Params = payload.Params
	})
	if err != nil {
		return nil, err
	}
	return req.CorrelationID(), nil
}

func handleSetPrompt(_ context.Context, w *Worker, cmd *bridge.Command) (any, error) {
	payload, ok := cmd.Payload().(SetPromptPayload)
	if !ok {
		return nil, fmt.Errorf("set_ego_prompt: unexpected payload type %T", cmd.Payload())
	}
	e, err := w.registry.Get(payload.Ego)
	if err != nil {
		return nil, err
	}
	e.SetPrompt(payload.Prompt)
	return payload.Ego, nil
}

func handleStatus(ctx context.Context, w *Worker, _ *bridge.Command) (any, error) {
	st := Status{
		Egos:       w.registry.Names(),
		QueueDepth: w.dispatcher.Depth(),
		InFlight:   w.dispatcher.InFlight(),
	}
	if _, ok := w.Latest(); ok {
		st.FrameAvailable = true
	}
	if hc, ok := w.model.(vlm.HealthChecker); ok {
		probeCtx, cancel := context.WithTimeout(ctx, w.healthTimeout)
		defer cancel()
		ready := hc.Ready(probeCtx) == nil
		st.EndpointReady = &ready
	}
	return st, nil
}
