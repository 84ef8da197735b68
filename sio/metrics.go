package sio

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the Engine and Queue do.  A nil *Metrics is
// fine and counts nothing.
type Metrics struct {
	events         *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	staleTimeouts  prometheus.Counter
	unhandled      prometheus.Counter
	droppedCommand prometheus.Counter
	state          *prometheus.GaugeVec
}

// NewMetrics makes Metrics registered with reg.  A nil reg gets a
// fresh registry, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fernspiel_events_total",
			Help: "Events consumed by the engine, by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fernspiel_transitions_total",
			Help: "Transitions taken, by source and target state.",
		}, []string{"from", "to"}),
		staleTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fernspiel_stale_timeouts_total",
			Help: "Timeouts discarded because a newer timer was armed.",
		}),
		unhandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fernspiel_unhandled_symbols_total",
			Help: "Events that no rule handled.",
		}),
		droppedCommand: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fernspiel_dropped_commands_total",
			Help: "Commands dropped because the action queue was full.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fernspiel_state",
			Help: "1 for the current state, 0 otherwise.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.events, m.transitions, m.staleTimeouts, m.unhandled, m.droppedCommand, m.state)

	return m
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Transition(from, to string) {
	if m != nil {
		m.transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) StaleTimeout() {
	if m != nil {
		m.staleTimeouts.Inc()
	}
}

func (m *Metrics) Unhandled() {
	if m != nil {
		m.unhandled.Inc()
	}
}

func (m *Metrics) DroppedCommand() {
	if m != nil {
		m.droppedCommand.Inc()
	}
}

// Current sets the state gauge so only id reads 1.
func (m *Metrics) Current(previous, id string) {
	if m == nil {
		return
	}
	if previous != "" && previous != id {
		m.state.WithLabelValues(previous).Set(0)
	}
	m.state.WithLabelValues(id).Set(1)
}
