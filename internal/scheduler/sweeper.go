// Package scheduler runs the periodic expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"rental/internal/services"
	"rental/internal/utils"
)

const DefaultInterval = time.Minute

type SweepFunc func(ctx context.Context) (services.SweepResult, error)

// Sweeper calls Sweep on a fixed interval. A sweep that fails is logged and
// retried on the next tick.
type Sweeper struct {
	Sweep    SweepFunc
	Interval time.Duration
}

func (s Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s Sweeper) tick(ctx context.Context) {
	res, err := s.Sweep(ctx)
	if err != nil {
		utils.Entry("", "sweep", "tick").WithError(err).Warn("sweep failed")
		return
	}
	if res.Scanned > 0 {
		utils.LogEvent("", "sweep", "tick", fmt.Sprintf("scanned=%d cancelled=%d skipped=%d failed=%d",
			res.Scanned, res.Cancelled, res.Skipped, res.Failed))
	}
}
