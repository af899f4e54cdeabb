package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"nexuscash/core/events"
)

// EventCounter is an events.Emitter that counts emitted domain events by
// type.
type EventCounter struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *EventCounter
)

// Events returns the counter registered against the default registry.
func Events() *EventCounter {
	eventMetricsOnce.Do(func() {
		eventRegistry = NewEventCounter(prometheus.DefaultRegisterer)
	})
	return eventRegistry
}

// NewEventCounter builds and registers an event counter.
func NewEventCounter(reg prometheus.Registerer) *EventCounter {
	c := &EventCounter{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscash",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Count of structured domain events segmented by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(c.emitted)
	}
	return c
}

// Emit implements events.Emitter.
func (c *EventCounter) Emit(evt events.Event) {
	if c == nil || evt == nil {
		return
	}
	c.emitted.WithLabelValues(label(evt.EventType())).Inc()
}

// Counter exposes the underlying vector for tests.
func (c *EventCounter) Counter() *prometheus.CounterVec { return c.emitted }
