package metadata

import (
	"context"
	"time"

	"github.com/hupe1980/visionmesh/vlm"
)

// Result is one finished inference outcome as handed to external publishers.
type Result struct {
	CorrelationID string     `json:"correlation_id"`
	Ego           string     `json:"ego"`
	Text          string     `json:"text"`
	Usage         *vlm.Usage `json:"usage,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Sink consumes finished results. Implementations must tolerate being called
// from the worker goroutine and should return quickly; slow transports belong
// behind their own buffering.
type Sink interface {
	Publish(ctx context.Context, res Result) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, res Result) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, res Result) error { return f(ctx, res) }
