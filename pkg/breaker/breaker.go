package breaker

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/igorsal/routewarden/internal/interfaces"
)

// Settings tunes a breaker. Zero values fall back to gobreaker defaults,
// except ConsecutiveFailures which defaults to 5.
type Settings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Breaker implements interfaces.CircuitBreaker on top of gobreaker and
// publishes its state transitions as metrics
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

var _ interfaces.CircuitBreaker = (*Breaker)(nil)

// New creates a named circuit breaker
func New(name string, s Settings, logger interfaces.Logger, metrics interfaces.MetricsCollector) *Breaker {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	metrics.SetGauge("circuit_breaker_state", float64(gobreaker.StateClosed), map[string]string{"name": name})

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetGauge("circuit_breaker_state", float64(to), map[string]string{"name": name})
			metrics.IncrementCounter("circuit_breaker_events_total", map[string]string{"name": name, "event": to.String()})
		},
	})

	return &Breaker{cb: cb}
}

func (b *Breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(req)
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

func (b *Breaker) State() string {
	return b.cb.State().String()
}

// IsOpen reports whether err was returned because the breaker rejected the call
func IsOpen(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
