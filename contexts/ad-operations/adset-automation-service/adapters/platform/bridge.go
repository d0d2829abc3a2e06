package platform

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultMaxAttempts     = 4
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 8 * time.Second
)

// Bridge applies run states through a PlatformClient, retrying transient
// failures with exponential backoff. Permanent rejections return at once.
type Bridge struct {
	Platform        ports.PlatformClient
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          *slog.Logger
}

func NewBridge(platform ports.PlatformClient, maxAttempts int, logger *slog.Logger) *Bridge {
	return &Bridge{
		Platform:    platform,
		MaxAttempts: maxAttempts,
		Logger:      logger,
	}
}

func (b *Bridge) Apply(ctx context.Context, adSetID string, desired entities.RunState) (ports.Ack, error) {
	logger := b.logger()
	adSetID = strings.TrimSpace(adSetID)
	attempts := 0

	operation := func() (ports.Ack, error) {
		attempts++
		ack, err := b.Platform.SetRunState(ctx, adSetID, desired)
		if err == nil {
			return ack, nil
		}
		if isPermanent(err) {
			return ports.Ack{}, backoff.Permanent(err)
		}
		return ports.Ack{}, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("platform status call retrying",
			"event", "adset_bridge_retry",
			"module", "ad-operations/adset-automation-service",
			"layer", "adapter",
			"adset_id", adSetID,
			"desired", string(desired),
			"attempt", attempts,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error(),
		)
	}

	ack, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b.newBackOff()),
		backoff.WithMaxTries(uint(b.maxAttempts())),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if isPermanent(err) {
			logger.Error("platform rejected status call",
				"event", "adset_bridge_rejected",
				"module", "ad-operations/adset-automation-service",
				"layer", "adapter",
				"adset_id", adSetID,
				"desired", string(desired),
				"error", err.Error(),
			)
			return ports.Ack{}, err
		}
		logger.Warn("platform status call exhausted retries",
			"event", "adset_bridge_exhausted",
			"module", "ad-operations/adset-automation-service",
			"layer", "adapter",
			"adset_id", adSetID,
			"desired", string(desired),
			"attempts", attempts,
			"error", err.Error(),
		)
		return ports.Ack{}, &domainerrors.TransientBridgeError{AdSetID: adSetID, Attempts: attempts, Err: err}
	}

	if ack.AdSetID == "" {
		ack.AdSetID = adSetID
	}
	if ack.State == "" {
		ack.State = desired
	}
	if ack.AppliedAt.IsZero() {
		ack.AppliedAt = time.Now().UTC()
	}
	ack.Attempts = attempts
	return ack, nil
}

func (b *Bridge) newBackOff() *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = defaultInitialInterval
	if b.InitialInterval > 0 {
		policy.InitialInterval = b.InitialInterval
	}
	policy.MaxInterval = defaultMaxInterval
	if b.MaxInterval > 0 {
		policy.MaxInterval = b.MaxInterval
	}
	return policy
}

func (b *Bridge) maxAttempts() int {
	if b.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return b.MaxAttempts
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

func isPermanent(err error) bool {
	return errors.Is(err, domainerrors.ErrPermanentBridge) ||
		errors.Is(err, domainerrors.ErrPlatformNotFound)
}
