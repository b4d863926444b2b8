// Package metrics exposes Prometheus collectors for the chatbot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat outcomes
const (
	OutcomeOK         = "ok"
	OutcomeInvalid    = "invalid"
	OutcomeQuota      = "quota_exceeded"
	OutcomeUpstream   = "upstream_error"
	OutcomeInternal   = "internal_error"
	OutcomeBreakerOff = "breaker_open"
)

// ModeInvalid is the mode label for requests whose mode failed validation
const ModeInvalid = "invalid"

var (
	// ChatRequestsTotal counts chatbot messages by mode and outcome.
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangatrack_chat_requests_total",
			Help: "Total number of chatbot messages handled",
		},
		[]string{"mode", "outcome"},
	)

	// InterpreterTierTotal counts which parsing tier produced the recommendations.
	InterpreterTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangatrack_chat_interpreter_tier_total",
			Help: "Generated replies by interpretation tier",
		},
		[]string{"tier"},
	)

	// GenerationDuration tracks text generation latency.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mangatrack_generation_duration_seconds",
			Help:    "Duration of text generation calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// BreakerState is the generation circuit breaker state (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mangatrack_generation_breaker_state",
			Help: "Generation circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	// ActiveDialogues is the number of open websocket dialogues.
	ActiveDialogues = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangatrack_active_dialogues",
			Help: "Number of open websocket dialogue connections",
		},
	)
)

// RecordChat records one chatbot message outcome
func RecordChat(mode, outcome string) {
	if mode == "" {
		mode = "unset"
	}
	ChatRequestsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordInterpreterTier records the tier used to interpret a reply
func RecordInterpreterTier(tier string) {
	InterpreterTierTotal.WithLabelValues(tier).Inc()
}

// RecordGeneration records a generation call
func RecordGeneration(provider string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	GenerationDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}
