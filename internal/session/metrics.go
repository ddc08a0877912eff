package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes Prometheus gauges tracking one session's membership
// and lifecycle state, grounded on internal/tss.Metrics' and
// internal/transport.Metrics' client_golang wiring.
type Metrics struct {
	Players prometheus.Gauge
	State   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_players",
			Help: "Number of players currently in the session roster.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_state",
			Help: "Current session.State as its integer value.",
		}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Players, m.State}
}
