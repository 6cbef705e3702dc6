package timing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatusLabel is the fixed status tag attached to every published latency.
const StatusLabel = "200"

// Sink receives the total latency of a fully timed outbound call.
type Sink interface {
	Observe(uri, status string, totalNanos int64)
}

// PrometheusSink publishes http.client.requests as a summary in milliseconds
// with p50/p95/p99 objectives.
type PrometheusSink struct {
	latency *prometheus.SummaryVec
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		latency: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name: "http_client_requests",
			Help: "Outbound request latency from remote start to local receive, in milliseconds",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.95: 0.01,
				0.99: 0.001,
			},
		}, []string{"uri", "status"}),
	}
	reg.MustRegister(s.latency)
	return s
}

// Observe truncates to whole milliseconds.
func (s *PrometheusSink) Observe(uri, status string, totalNanos int64) {
	ms := totalNanos / int64(time.Millisecond)
	s.latency.WithLabelValues(uri, status).Observe(float64(ms))
}
