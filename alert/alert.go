package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/visionmesh/logging"
)

// Alert is the state of one monitored rule.
type Alert struct {
	// Rule is the key the rule was registered under ("r0", "r1", ...).
	Rule string `json:"rule"`
	// Query is the yes/no question evaluated against the video feed.
	Query string `json:"query"`
	// Active reports the most recent evaluation result.
	Active bool `json:"active"`
	// Cooldown is true while the rule sits in its cooldown window after a
	// trigger; consumers use it to suppress repeated notifications.
	Cooldown bool `json:"cooldown"`
	// TriggeredAt is the time the current cooldown window started. Zero when
	// Cooldown is false.
	TriggeredAt time.Time `json:"triggered_at,omitempty"`
}

// Exporter receives the full rule state after every update. Implementations
// are called from the goroutine updating the monitor and should return
// quickly; slow transports belong behind their own buffering.
type Exporter interface {
	Export(alerts []Alert)
}

// ExporterFunc adapts a function to the Exporter interface.
type ExporterFunc func(alerts []Alert)

// Export implements Exporter.
func (f ExporterFunc) Export(alerts []Alert) { f(alerts) }

// Options configure a Monitor.
type Options struct {
	// Cooldown is the window during which a triggered rule stays marked as
	// cooling down. Zero disables cooldown tracking.
	Cooldown time.Duration
	// Exporter receives state snapshots after every update. Nil disables
	// exporting.
	Exporter Exporter
	// Logger for monitor telemetry.
	Logger logging.Logger
}

// Monitor holds the alert state machine for a set of rules. Safe for
// concurrent use; updates are expected from the worker goroutine while
// façade goroutines read snapshots.
type Monitor struct {
	mu       sync.Mutex
	alerts   map[string]*Alert
	cooldown time.Duration
	exporter Exporter
	logger   logging.Logger
	now      func() time.Time
}

// NewMonitor constructs an empty monitor with optional overrides.
func NewMonitor(optFns ...func(o *Options)) *Monitor {
	opts := Options{
		Cooldown: 60 * time.Second,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Monitor{
		alerts:   make(map[string]*Alert),
		cooldown: opts.Cooldown,
		exporter: opts.Exporter,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// SetRules replaces the rule set. Existing rules are cleared (their final
// inactive state is exported) and the new rules start inactive.
func (m *Monitor) SetRules(queries map[string]string) {
	m.Clear()

	m.mu.Lock()
	for key, query := range queries {
		m.alerts[key] = &Alert{Rule: key, Query: query}
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("alert rules replaced", "count", len(queries))
	m.export(snapshot)
}

// SetStates applies new evaluation results. Unknown rule keys are ignored.
// A rule becoming active outside its cooldown window starts a new window;
// an expired window is reset before the new state is applied.
func (m *Monitor) SetStates(states map[string]bool) {
	m.mu.Lock()
	for key, active := range states {
		a, ok := m.alerts[key]
		if !ok {
			m.logger.Warn("state update for unknown alert rule", "rule", key)
			continue
		}

		if m.cooldown > 0 {
			if a.Cooldown {
				if m.now().Sub(a.TriggeredAt) > m.cooldown {
					a.Cooldown = false
					a.TriggeredAt = time.Time{}
				}
			} else if active {
				a.TriggeredAt = m.now()
				a.Cooldown = true
			}
		}
		a.Active = active
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.export(snapshot)
}

// Clear deactivates all rules, exports their final state and drops them.
func (m *Monitor) Clear() {
	m.mu.Lock()
	for _, a := range m.alerts {
		a.Active = false
	}
	snapshot := m.snapshotLocked()
	m.alerts = make(map[string]*Alert)
	m.mu.Unlock()

	m.export(snapshot)
}

// Rule returns the current state of one rule.
func (m *Monitor) Rule(key string) (Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[key]
	if !ok {
		return Alert{}, false
	}
	return *a, true
}

// Snapshot returns the state of every rule, sorted by rule key.
func (m *Monitor) Snapshot() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() []Alert {
	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rule < out[j].Rule })
	return out
}

func (m *Monitor) export(snapshot []Alert) {
	if m.exporter != nil {
		m.exporter.Export(snapshot)
	}
}
