package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "authx"

// Exchange result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// LabelUnsupported replaces the edge labels of exchanges that are not enabled
const LabelUnsupported = "unsupported"

// Exchange holds the collectors describing exchange traffic.
type Exchange struct {
	Attempts       *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	RecordFailures prometheus.Counter
}

// NewExchange creates the exchange collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewExchange(reg prometheus.Registerer) *Exchange {
	m := &Exchange{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_attempts_total",
			Help:      "Token exchange attempts by edge and result.",
		}, []string{"from", "to", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Time spent in token exchange handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"from", "to"}),
		RecordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_attempt_record_failures_total",
			Help:      "Exchange attempts that could not be written to the audit sink.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Attempts, m.Duration, m.RecordFailures)
	}
	return m
}

// Observe records one exchange outcome.
func (m *Exchange) Observe(from, to string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.Attempts.WithLabelValues(from, to, result).Inc()
	m.Duration.WithLabelValues(from, to).Observe(elapsed.Seconds())
}

// RecordFailed counts an audit write that did not succeed.
func (m *Exchange) RecordFailed() {
	if m == nil {
		return
	}
	m.RecordFailures.Inc()
}
