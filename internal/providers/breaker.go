package providers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/mangatrack/mangatrack-backend/internal/metrics"
)

// BreakerConfig controls when the generation circuit opens
type BreakerConfig struct {
	// ConsecutiveFailures opens the circuit; zero disables the breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing again
	OpenTimeout time.Duration
}

// BreakerProvider fails fast with gobreaker.ErrOpenState after repeated
// upstream failures instead of waiting out another generation timeout
type BreakerProvider struct {
	Provider
	cb *gobreaker.CircuitBreaker[*CompletionResponse]
}

// WithBreaker wraps p in a circuit breaker. With a zero failure threshold p
// is returned unchanged.
func WithBreaker(p Provider, cfg BreakerConfig, logger logrus.FieldLogger) Provider {
	if cfg.ConsecutiveFailures == 0 {
		return p
	}

	name := p.Name()
	metrics.BreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*CompletionResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// Caller cancellations say nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("Generation circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &BreakerProvider{Provider: p, cb: cb}
}

// Complete runs the wrapped provider's completion through the breaker
func (b *BreakerProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return b.cb.Execute(func() (*CompletionResponse, error) {
		return b.Provider.Complete(ctx, req)
	})
}

// State reports the breaker state
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}
