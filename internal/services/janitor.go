package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-inline-answer-bot/internal/observability"
)

// Sweeper removes terminal reservations created before cutoff.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// Janitor periodically applies the retention policy: terminal reservations
// older than TTL are swept and idle usage windows are compacted. Pending
// reservations are never touched. It only runs when a TTL is configured.
type Janitor struct {
	Store Sweeper
	Usage *UsageTracker
	TTL   time.Duration
	// Every is the sweep interval; <= 0 uses TTL/2 (at least one minute).
	Every time.Duration
	Now   func() time.Time
	Log   zerolog.Logger
}

// Run sweeps until ctx is done. It returns ctx.Err().
func (j *Janitor) Run(ctx context.Context) error {
	t := time.NewTicker(j.interval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			j.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single retention pass.
func (j *Janitor) SweepOnce(ctx context.Context) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	n, err := j.Store.Sweep(ctx, now().Add(-j.TTL))
	if err != nil {
		j.Log.Warn().Err(err).Msg("reservation sweep failed")
	} else if n > 0 {
		observability.Swept.Add(float64(n))
		j.Log.Info().Int("removed", n).Msg("reservations swept")
	}
	if j.Usage != nil {
		if idle := j.Usage.Compact(); idle > 0 {
			j.Log.Debug().Int("identities", idle).Msg("usage windows compacted")
		}
	}
}

func (j *Janitor) interval() time.Duration {
	if j.Every > 0 {
		return j.Every
	}
	if half := j.TTL / 2; half > time.Minute {
		return half
	}
	return time.Minute
}
