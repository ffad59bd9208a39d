// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "noesis"

const (
	ReasonNoTarget     = "no_target"
	ReasonBackpressure = "backpressure"
	ReasonUnbound      = "unbound"
	ReasonNoSession    = "no_session"
)

// Metrics holds all Prometheus metrics for the relay. Every method is safe
// on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	sessionsActive    prometheus.Gauge
	connectionsActive *prometheus.GaugeVec
	framesRelayed     *prometheus.CounterVec
	bytesRelayed      *prometheus.CounterVec
	framesDropped     *prometheus.CounterVec
	sttEvents         *prometheus.CounterVec
	controlMessages   *prometheus.CounterVec
	malformedFrames   prometheus.Counter
}

// New creates a new Metrics instance with a custom Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions in the registry.",
		}),

		connectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of bound connections, by role.",
		}, []string{"role"}),

		framesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_relayed_total",
			Help:      "Audio frames relayed to the opposite peer, by sender role.",
		}, []string{"role"}),

		bytesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_relayed_total",
			Help:      "Audio payload bytes relayed, by sender role.",
		}, []string{"role"}),

		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Audio frames not delivered, by reason.",
		}, []string{"reason"}),

		sttEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_events_total",
			Help:      "Transcript events delivered to agents, by kind.",
		}, []string{"kind"}),

		controlMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_messages_total",
			Help:      "Inbound control messages handled, by type.",
		}, []string{"type"}),

		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound text frames dropped because they could not be decoded.",
		}),
	}

	reg.MustRegister(
		m.sessionsActive,
		m.connectionsActive,
		m.framesRelayed,
		m.bytesRelayed,
		m.framesDropped,
		m.sttEvents,
		m.controlMessages,
		m.malformedFrames,
	)

	return m
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) ConnectionBound(role string) {
	if m == nil {
		return
	}
	m.connectionsActive.WithLabelValues(role).Inc()
}

func (m *Metrics) ConnectionReleased(role string) {
	if m == nil {
		return
	}
	m.connectionsActive.WithLabelValues(role).Dec()
}

func (m *Metrics) FrameRelayed(role string, n int) {
	if m == nil {
		return
	}
	m.framesRelayed.WithLabelValues(role).Inc()
	m.bytesRelayed.WithLabelValues(role).Add(float64(n))
}

func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) STTEvent(kind string) {
	if m == nil {
		return
	}
	m.sttEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) ControlMessage(typ string) {
	if m == nil {
		return
	}
	m.controlMessages.WithLabelValues(typ).Inc()
}

func (m *Metrics) MalformedFrame() {
	if m == nil {
		return
	}
	m.malformedFrames.Inc()
}
