package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// Forwarder hands deltas to a Sink. With the default single attempt a delta
// is written at most once; more attempts trade that for durability.
type Forwarder struct {
	sink     Sink
	attempts uint
	delay    time.Duration
	logger   *zap.Logger
}

// NewForwarder wraps sink. attempts below 1 are raised to 1.
func NewForwarder(sink Sink, attempts int, logger *zap.Logger) *Forwarder {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		sink:     sink,
		attempts: uint(attempts),
		delay:    200 * time.Millisecond,
		logger:   logger,
	}
}

// Forward applies d for the given user and deck.
func (f *Forwarder) Forward(ctx context.Context, userID, deckID string, d Delta) error {
	err := retry.Do(
		func() error {
			return f.sink.ApplyProgressDelta(ctx, userID, deckID, d)
		},
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Warn("retrying progress delta",
				zap.Uint("attempt", n+1),
				zap.String("card_id", d.Review.CardID),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("apply progress delta for card %s: %w", d.Review.CardID, err)
	}

	f.logger.Debug("progress delta applied",
		zap.String("user_id", userID),
		zap.String("deck_id", deckID),
		zap.String("card_id", d.Review.CardID),
		zap.Int("xp", d.Increment.DailyXP),
	)
	return nil
}
