package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Send outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeBusy     = "busy"
	OutcomeRejected = "rejected"
)

// Metrics records chat pipeline outcomes so operators see failures the end
// user only experiences as an apology message.
type Metrics struct {
	sends          *prometheus.CounterVec
	attempts       prometheus.Counter
	upstreamErrors *prometheus.CounterVec
	sendDuration   prometheus.Histogram
}

// NewMetrics registers the chat metrics on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_sends_total",
			Help: "Chat send operations by terminal outcome",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_upstream_attempts_total",
			Help: "Individual completion attempts, including retries",
		}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_upstream_errors_total",
			Help: "Errors from the completion upstream by kind",
		}, []string{"kind"}),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_send_duration_seconds",
			Help:    "Total duration of a send, retries included",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.sends, m.attempts, m.upstreamErrors, m.sendDuration)
	return m
}

// ObserveSend records a terminal send outcome with its duration in seconds
func (m *Metrics) ObserveSend(outcome string, seconds float64) {
	m.sends.WithLabelValues(outcome).Inc()
	m.sendDuration.Observe(seconds)
}

// ObserveAttempts records how many attempts one send consumed
func (m *Metrics) ObserveAttempts(n int) {
	m.attempts.Add(float64(n))
}

// ObserveUpstreamError counts one upstream failure by kind
func (m *Metrics) ObserveUpstreamError(kind string) {
	m.upstreamErrors.WithLabelValues(kind).Inc()
}
