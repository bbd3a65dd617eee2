package payment

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"storefront_back_end/internal/models"
)

// BreakerConfig tunes the circuit around the payment provider.
type BreakerConfig struct {
	Name         string
	CallTimeout  time.Duration
	OpenTimeout  time.Duration
	MaxFailures  uint32
	HalfOpenReqs uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "payment-processor",
		CallTimeout:  10 * time.Second,
		OpenTimeout:  30 * time.Second,
		MaxFailures:  5,
		HalfOpenReqs: 1,
	}
}

// Breaker wraps a Processor with a per-call timeout and a circuit breaker.
// Refusals such as an unknown session do not count as provider failures.
type Breaker struct {
	next     Processor
	timeout  time.Duration
	sessions *gobreaker.CircuitBreaker[*models.PaymentSession]
	expiries *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Processor, cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenReqs,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("🚨 Circuit %s: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerError(err)
		},
	}
	expirySettings := settings
	expirySettings.Name = cfg.Name + "-expire"

	return &Breaker{
		next:     next,
		timeout:  cfg.CallTimeout,
		sessions: gobreaker.NewCircuitBreaker[*models.PaymentSession](settings),
		expiries: gobreaker.NewCircuitBreaker[struct{}](expirySettings),
	}
}

func (b *Breaker) CreateSession(ctx context.Context, req SessionRequest) (*models.PaymentSession, error) {
	return b.sessions.Execute(func() (*models.PaymentSession, error) {
		ctx, cancel := b.withTimeout(ctx)
		defer cancel()
		return b.next.CreateSession(ctx, req)
	})
}

func (b *Breaker) GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	return b.sessions.Execute(func() (*models.PaymentSession, error) {
		ctx, cancel := b.withTimeout(ctx)
		defer cancel()
		return b.next.GetSession(ctx, sessionID)
	})
}

func (b *Breaker) ExpireSession(ctx context.Context, sessionID string) error {
	_, err := b.expiries.Execute(func() (struct{}, error) {
		ctx, cancel := b.withTimeout(ctx)
		defer cancel()
		return struct{}{}, b.next.ExpireSession(ctx, sessionID)
	})
	return err
}

func (b *Breaker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// MayHaveCommitted reports whether a failed call could still have taken
// effect at the provider: it was sent, but its answer was lost or was a
// server error. A refused request or an open circuit never reached it.
func MayHaveCommitted(err error) bool {
	if err == nil || isCallerError(err) {
		return false
	}
	return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
}
