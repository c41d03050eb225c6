// Package metrics holds the advisor's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// turnsTotal counts finished turns by outcome
	turnsTotal *prometheus.CounterVec

	// safetyRejections counts declined utterances by guard reason
	safetyRejections *prometheus.CounterVec

	// tokensTotal counts estimated tokens by direction (input, output)
	tokensTotal *prometheus.CounterVec

	costUSD prometheus.Counter

	// retrievalDuration tracks embed + search latency
	retrievalDuration *prometheus.HistogramVec

	completionStatus *prometheus.CounterVec
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		turnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_turns_total",
			Help: "Total conversation turns by outcome",
		}, []string{"outcome"}),
		safetyRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_safety_rejections_total",
			Help: "Utterances declined by the safety guard, by reason",
		}, []string{"reason"}),
		tokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_tokens_total",
			Help: "Estimated completion tokens by direction",
		}, []string{"direction"}),
		costUSD: f.NewCounter(prometheus.CounterOpts{
			Name: "advisor_estimated_cost_usd_total",
			Help: "Estimated completion cost in USD",
		}),
		retrievalDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "advisor_retrieval_duration_seconds",
			Help:    "Course search latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"backend", "result"}),
		completionStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_completion_status_total",
			Help: "Completion streams by terminal status",
		}, []string{"status"}),
	}
}

func (m *Metrics) Turn(outcome string) {
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SafetyRejection(reason string) {
	m.safetyRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) Tokens(input, output int, usd float64) {
	m.tokensTotal.WithLabelValues("input").Add(float64(input))
	m.tokensTotal.WithLabelValues("output").Add(float64(output))
	m.costUSD.Add(usd)
}

func (m *Metrics) Retrieval(backend string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.retrievalDuration.WithLabelValues(backend, result).Observe(took.Seconds())
}

func (m *Metrics) Completion(status string) {
	m.completionStatus.WithLabelValues(status).Inc()
}
