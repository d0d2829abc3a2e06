package application

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	MinInterval     = 5 * time.Second
	MaxInterval     = 10 * time.Minute
	DefaultInterval = 30 * time.Second
)

// ClampInterval bounds a poll interval to [MinInterval, MaxInterval].
// Zero selects DefaultInterval.
func ClampInterval(interval time.Duration) time.Duration {
	switch {
	case interval <= 0:
		return DefaultInterval
	case interval < MinInterval:
		return MinInterval
	case interval > MaxInterval:
		return MaxInterval
	default:
		return interval
	}
}

// Run pulls immediately and then on every interval until ctx is done.
// Consecutive failures stretch the delay exponentially up to MaxInterval;
// the first success resets it.
func (s *Session) Run(ctx context.Context) error {
	logger := ResolveLogger(s.Logger)
	interval := ClampInterval(s.Interval)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	policy.MaxInterval = MaxInterval

	logger.Info("auditor session started",
		"event", "auditor_session_started",
		"module", "ad-operations/auditor-session",
		"layer", "application",
		"interval", interval.String(),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("auditor session stopped",
				"event", "auditor_session_stopped",
				"module", "ad-operations/auditor-session",
				"layer", "application",
			)
			return nil
		case <-timer.C:
		}

		wait := interval
		if _, err := s.Pull(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait = policy.NextBackOff()
			if wait <= 0 || wait > MaxInterval {
				wait = MaxInterval
			}
		} else {
			policy.Reset()
		}
		timer.Reset(wait)
	}
}
