package frame

import (
	"encoding/base64"
	"sync"
	"time"
)

// Frame is a single JPEG-encoded video frame snapshot. Data must not be
// mutated after the frame is published.
type Frame struct {
	// Data holds the JPEG bytes.
	Data []byte
	// Source identifies the originating stream (sensor id or name).
	Source string
	// Timestamp is the capture time.
	Timestamp time.Time
}

// DataURL returns the frame encoded as a base64 JPEG data URL, the form
// OpenAI-compatible chat servers expect for image content.
func (f Frame) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Source yields the most recent frame of a stream. Implementations must be
// safe for one reader (the worker) and any number of writers.
type Source interface {
	// Latest returns the newest frame, or ok=false when no frame has been
	// published yet.
	Latest() (Frame, bool)
}

// LatestHolder is a Source holding only the newest published frame. A new
// frame overwrites the previous one; unconsumed frames are counted as
// dropped. Publish never blocks.
type LatestHolder struct {
	mu       sync.Mutex
	frame    Frame
	present  bool
	consumed bool
	dropped  uint64
}

// NewLatestHolder constructs an empty holder.
func NewLatestHolder() *LatestHolder {
	return &LatestHolder{consumed: true}
}

// Publish stores f as the newest frame, replacing any unconsumed one.
func (h *LatestHolder) Publish(f Frame) {
	h.mu.Lock()
	if h.present && !h.consumed {
		h.dropped++
	}
	h.frame = f
	h.present = true
	h.consumed = false
	h.mu.Unlock()
}

// Latest implements Source.
func (h *LatestHolder) Latest() (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.present {
		return Frame{}, false
	}
	h.consumed = true
	return h.frame, true
}

// Dropped reports how many published frames were overwritten before being
// read.
func (h *LatestHolder) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
