package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/models"
)

// TokenReaper periodically deletes expired token rows.
// Lookups already ignore expired rows, so the sweep only bounds table growth.
type TokenReaper struct {
	tokens   *TokenStore
	interval time.Duration
	log      *zap.Logger
}

func NewTokenReaper(tokens *TokenStore, interval time.Duration, log *zap.Logger) *TokenReaper {
	return &TokenReaper{tokens: tokens, interval: interval, log: log}
}

// Start sweeps every interval until ctx is cancelled.
func (r *TokenReaper) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("token reaper started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("token reaper stopped")
			return nil
		case <-ticker.C:
			r.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one pass over every token table. Failures are logged and retried next tick.
func (r *TokenReaper) SweepOnce(ctx context.Context) int {
	total := 0
	for _, p := range []models.Purpose{models.PurposeConfirmation, models.PurposeReset, models.PurposeSession} {
		n, err := r.tokens.Sweep(ctx, p)
		total += n
		if err != nil {
			r.log.Error("token sweep failed", zap.String("purpose", string(p)), zap.Error(err))
			continue
		}
		if n > 0 {
			r.log.Info("expired tokens removed", zap.String("purpose", string(p)), zap.Int("count", n))
		}
	}
	return total
}
