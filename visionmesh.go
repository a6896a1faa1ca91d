// Package visionmesh provides a high-level façade over the ego registry, the
// request dispatcher, the command bridge and the worker loop, enabling
// construction of vision-language analytics services around a live video
// feed. Most applications interact with this package by:
//  1. Creating a VisionMesh via New() with a vlm.Model (OpenAI-compatible,
//     Anthropic, or a mock)
//  2. Registering one or more egos (system prompt + completion callback)
//  3. Starting the worker loop with Run
//  4. Driving it from façade goroutines: Submit for fire-and-forget analysis,
//     Send for synchronous command/reply exchanges
//
// All engine and video state is owned by the single worker goroutine; façade
// goroutines only ever talk to it through the bridge or the dispatch queue.
// Defaults are safe for local development; production deployments supply a
// frame source, a durable metadata sink and a structured logger.
package visionmesh

import (
	"context"
	"time"

	"github.com/hupe1980/visionmesh/bridge"
	"github.com/hupe1980/visionmesh/dispatch"
	"github.com/hupe1980/visionmesh/ego"
	"github.com/hupe1980/visionmesh/frame"
	"github.com/hupe1980/visionmesh/logging"
	"github.com/hupe1980/visionmesh/metadata"
	"github.com/hupe1980/visionmesh/vlm"
	"github.com/hupe1980/visionmesh/worker"
)

// Options configures the VisionMesh instance.
type Options struct {
	// Source supplies the current video frame for analyze commands. Nil
	// means requests go out without an image.
	Source frame.Source

	// QueueSize bounds the dispatcher's FIFO queue.
	QueueSize int

	// RequestTimeout bounds each remote inference call.
	RequestTimeout time.Duration

	// CommandBuffer sets the bridge's command channel capacity.
	CommandBuffer int

	// Sink receives successful results (defaults to none).
	Sink metadata.Sink

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// VisionMesh is the high-level façade aggregating registry, dispatcher,
// bridge and worker.
type VisionMesh struct {
	registry   *ego.Registry
	dispatcher *dispatch.Dispatcher
	bridge     *bridge.Bridge
	worker     *worker.Worker
}

// New creates a VisionMesh around the given model with optional overrides.
func New(model vlm.Model, optFns ...func(o *Options)) *VisionMesh {
	opts := Options{
		QueueSize:      64,
		RequestTimeout: 60 * time.Second,
		CommandBuffer:  16,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := ego.NewRegistry()
	dispatcher := dispatch.New(registry, model, func(o *dispatch.Options) {
		o.QueueSize = opts.QueueSize
		o.RequestTimeout = opts.RequestTimeout
		o.Sink = opts.Sink
		o.Logger = opts.Logger
	})
	b := bridge.New(func(o *bridge.Options) {
		o.Buffer = opts.CommandBuffer
		o.Logger = opts.Logger
	})
	w := worker.New(b, dispatcher, registry, model, func(o *worker.Options) {
		o.Source = opts.Source
		o.Logger = opts.Logger
	})

	return &VisionMesh{
		registry:   registry,
		dispatcher: dispatcher,
		bridge:     b,
		worker:     w,
	}
}

// RegisterEgo adds a named persona. It fails with *ego.DuplicateEgoError when
// the name is taken.
func (m *VisionMesh) RegisterEgo(name, systemPrompt string, cb ego.Callback, params map[string]any) error {
	_, err := m.registry.Add(name, systemPrompt, cb, params)
	return err
}

// RegisterHandler installs a command handler for a deployment-defined verb.
func (m *VisionMesh) RegisterHandler(verb bridge.Verb, h worker.Handler) {
	m.worker.RegisterHandler(verb, h)
}

// Submit enqueues an inference request and returns immediately with a handle.
func (m *VisionMesh) Submit(egoName, prompt string, f *frame.Frame, optFns ...func(o *dispatch.CallOptions)) (*dispatch.Request, error) {
	return m.dispatcher.Submit(egoName, prompt, f, optFns...)
}

// Send issues a command to the worker and blocks until its reply or timeout.
func (m *VisionMesh) Send(verb bridge.Verb, payload any, timeout time.Duration) (any, error) {
	return m.bridge.Send(verb, payload, timeout)
}

// Run executes the worker loop until ctx is done. It must be running for
// Submit and Send to make progress.
func (m *VisionMesh) Run(ctx context.Context) error {
	return m.worker.Run(ctx)
}

// Registry exposes the ego registry.
func (m *VisionMesh) Registry() *ego.Registry { return m.registry }

// Dispatcher exposes the request dispatcher.
func (m *VisionMesh) Dispatcher() *dispatch.Dispatcher { return m.dispatcher }

// Bridge exposes the command bridge.
func (m *VisionMesh) Bridge() *bridge.Bridge { return m.bridge }

// Worker exposes the worker, mainly for installing handler bundles such as
// worker.RegisterStreamHandlers.
func (m *VisionMesh) Worker() *worker.Worker { return m.worker }
