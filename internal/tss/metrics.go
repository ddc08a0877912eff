package tss

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus instruments a Scheduler reports against.
type Metrics struct {
	Rollbacks      prometheus.Counter
	ReplayedFrames prometheus.Counter
	Desyncs        prometheus.Counter
}

// NewMetrics returns a fresh, unregistered Metrics set. Callers
// register it into their own prometheus.Registerer.
func NewMetrics() *Metrics {
	return &Metrics{
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tss_rollbacks_total",
			Help: "Trailing states rolled back and replayed due to a contradicting authoritative command.",
		}),
		ReplayedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tss_replayed_frames_total",
			Help: "Total number of frames re-executed across all rollbacks.",
		}),
		Desyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tss_desyncs_total",
			Help: "Peer hash mismatches detected at the deepest trailing state.",
		}),
	}
}

// Collectors returns every metric for bulk registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Rollbacks, m.ReplayedFrames, m.Desyncs}
}
