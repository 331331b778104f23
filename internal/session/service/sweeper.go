package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically deletes expired sessions.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	// OnSweep, if set, is called with the number of rows removed by each successful sweep.
	OnSweep func(ctx context.Context, deleted int64)
}

// NewSweeper returns a Sweeper running every interval.
func NewSweeper(manager *Manager, interval time.Duration) *Sweeper {
	return &Sweeper{manager: manager, interval: interval}
}

// SweepOnce deletes expired sessions and logs the count.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.manager.DeleteExpired(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("session sweep failed")
		return 0, err
	}
	zerolog.Ctx(ctx).Info().Int64("deleted", n).Msg("expired sessions swept")
	if s.OnSweep != nil {
		s.OnSweep(ctx, n)
	}
	return n, nil
}

// Run sweeps immediately and then every interval until ctx is done. Sweep
// failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	_, _ = s.SweepOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
