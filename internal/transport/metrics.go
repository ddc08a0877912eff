package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes Prometheus counters for one Endpoint's traffic.
//
// Grounded on internal/tss.Metrics' wiring of
// github.com/prometheus/client_golang/prometheus.Counter.
type Metrics struct {
	BytesSent    prometheus.Counter
	BytesRecv    prometheus.Counter
	Retransmits  prometheus.Counter
	Timeouts     prometheus.Counter
	DecodeErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_bytes_sent_total",
			Help: "Framed bytes written to the wire or loopback inbox.",
		}),
		BytesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_bytes_received_total",
			Help: "Framed bytes read from the wire or loopback inbox.",
		}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_retransmits_total",
			Help: "Reliable messages resent after their backoff window elapsed unacknowledged.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_timeouts_total",
			Help: "Reliable messages abandoned after exhausting their retry budget.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_decode_errors_total",
			Help: "Inbound datagrams dropped for failing frame or message decoding.",
		}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.BytesSent, m.BytesRecv, m.Retransmits, m.Timeouts, m.DecodeErrors}
}
