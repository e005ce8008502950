package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the relay's collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	connections   prometheus.Gauge
	events        *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	peerDrops     prometheus.Counter
	mirrorErrors  prometheus.Counter
	samplesStored prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections",
			Help: "Number of live websocket connections.",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_inbound_events_total",
			Help: "Inbound events dispatched, by event name.",
		}, []string{"event"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_inbound_dropped_total",
			Help: "Inbound frames dropped, by reason.",
		}, []string{"reason"}),
		peerDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_outbound_dropped_total",
			Help: "Outbound frames dropped because a peer's send buffer was full.",
		}),
		mirrorErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_mirror_errors_total",
			Help: "Failed publishes to the Redis mirror.",
		}),
		samplesStored: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_location_samples_total",
			Help: "Location samples appended to history.",
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) PeerDrop() {
	if m == nil {
		return
	}
	m.peerDrops.Inc()
}

func (m *Metrics) MirrorError() {
	if m == nil {
		return
	}
	m.mirrorErrors.Inc()
}

func (m *Metrics) SampleStored() {
	if m == nil {
		return
	}
	m.samplesStored.Inc()
}
