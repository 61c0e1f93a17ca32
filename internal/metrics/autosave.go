// Package metrics holds the prometheus collectors of the PRD builder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Save triggers
const (
	TriggerDebounce = "debounce"
	TriggerManual   = "manual"
)

// AutoSave collects auto-save activity across all editing sessions.
// A nil *AutoSave is valid and records nothing.
type AutoSave struct {
	dispatched   *prometheus.CounterVec
	settled      *prometheus.CounterVec
	coalesced    prometheus.Counter
	evicted      prometheus.Counter
	duration     prometheus.Histogram
	openSessions prometheus.Gauge
}

// NewAutoSave creates the collectors and registers them with reg
func NewAutoSave(reg prometheus.Registerer) *AutoSave {
	m := &AutoSave{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prd",
			Name:      "saves_dispatched_total",
			Help:      "Saves handed to the save serializer, by trigger.",
		}, []string{"trigger"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prd",
			Name:      "saves_settled_total",
			Help:      "Completed save calls, by result.",
		}, []string{"result"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prd",
			Name:      "saves_coalesced_total",
			Help:      "Pending save values overwritten by a newer value before they started.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prd",
			Name:      "sessions_evicted_total",
			Help:      "Editing sessions closed after staying idle past the TTL.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prd",
			Name:      "save_duration_seconds",
			Help:      "Duration of save calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prd",
			Name:      "open_sessions",
			Help:      "Editing sessions currently open.",
		}),
	}

	reg.MustRegister(m.dispatched, m.settled, m.coalesced, m.evicted, m.duration, m.openSessions)
	return m
}

// SaveDispatched records a save handed to the serializer
func (m *AutoSave) SaveDispatched(trigger string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(trigger).Inc()
}

// SaveSettled records a finished save call
func (m *AutoSave) SaveSettled(err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.settled.WithLabelValues(result).Inc()
	m.duration.Observe(took.Seconds())
}

// SaveCoalesced records a pending value replaced by a newer one
func (m *AutoSave) SaveCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

// SessionEvicted records an idle session closed by the manager
func (m *AutoSave) SessionEvicted() {
	if m == nil {
		return
	}
	m.evicted.Inc()
}

// SessionOpened increments the open session gauge
func (m *AutoSave) SessionOpened() {
	if m == nil {
		return
	}
	m.openSessions.Inc()
}

// SessionClosed decrements the open session gauge
func (m *AutoSave) SessionClosed() {
	if m == nil {
		return
	}
	m.openSessions.Dec()
}
