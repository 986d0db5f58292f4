package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"gorm.io/gorm"

	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/config"
)

// Breaker guards a store with a circuit breaker and a per-call timeout so a
// database outage fails fast with DependencyUnavailable instead of blocking.
type Breaker struct {
	name    string
	cb      *gobreaker.CircuitBreaker[any]
	timeout time.Duration
}

func NewBreaker(name string, cfg config.BreakerConfig, timeout time.Duration, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Missing rows and domain rejections are answers, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
				return true
			}
			return apperrors.GetAppError(err) != nil && !apperrors.IsDependencyUnavailable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"store", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker[any](settings),
		timeout: timeout,
	}
}

// Do runs fn under the breaker. gorm.ErrRecordNotFound passes through
// untouched; every other failure becomes DependencyUnavailable.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.NewDependencyUnavailable(b.name+" unavailable", err)
	case apperrors.GetAppError(err) != nil:
		return err
	default:
		return apperrors.NewDependencyUnavailable(b.name+" query failed", err)
	}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
