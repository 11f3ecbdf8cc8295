package metrics

import "github.com/prometheus/client_golang/prometheus"

// Handshake results.
const (
	HandshakeAccepted          = "accepted"
	HandshakeMissingCredential = "missing_credential"
	HandshakeInvalidCredential = "invalid_credential"
	HandshakeProfileNotFound   = "profile_not_found"
	HandshakeOverCapacity      = "over_capacity"
	HandshakeError             = "error"
)

// Drop reasons.
const (
	DropNoMembers     = "no_members"
	DropUninitialized = "uninitialized"
	DropSlowClient    = "slow_client"
	DropRelayBacklog  = "relay_backlog"
)

// RealtimeMetrics holds Prometheus metrics for live connections and dispatch.
type RealtimeMetrics struct {
	ActiveConnections prometheus.Gauge
	Handshakes        *prometheus.CounterVec
	EventsDelivered   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	RelayReceived     prometheus.Counter
}

// NewRealtimeMetrics creates and registers realtime metrics on the given registry.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	m := &RealtimeMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "active_connections",
			Help:      "Number of authenticated live connections.",
		}),
		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "handshakes_total",
			Help:      "Total number of connection handshakes, by result.",
		}, []string{"result"}),
		EventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_delivered_total",
			Help:      "Total number of frames handed to connections, by target kind.",
		}, []string{"target"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Total number of dispatches or frames dropped, by reason.",
		}, []string{"reason"}),
		RelayReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "relay_received_total",
			Help:      "Total number of dispatches received from other instances.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.Handshakes, m.EventsDelivered, m.EventsDropped, m.RelayReceived)
	return m
}
