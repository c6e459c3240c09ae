// Package cleanup periodically purges expired sessions from the store.
package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultInterval = 24 * time.Hour

// Purger deletes sessions that expired before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs a purge once per interval. A failed purge is logged and the
// next tick runs as usual.
type Scheduler struct {
	purger   Purger
	interval time.Duration
	nowTime  func() time.Time
	ticks    func(d time.Duration) (<-chan time.Time, func())
}

type Option func(*Scheduler)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Scheduler) {
		s.nowTime = nowFunc
	}
}

// WithTicker replaces the ticker source (primarily for testing)
func WithTicker(ticks func(d time.Duration) (<-chan time.Time, func())) Option {
	return func(s *Scheduler) {
		s.ticks = ticks
	}
}

func New(purger Purger, interval time.Duration, options ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		purger:   purger,
		interval: interval,
		nowTime:  time.Now,
		ticks: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled, purging on every tick. The first purge
// happens one interval after Run starts.
func (s *Scheduler) Run(ctx context.Context) error {
	ticks, stop := s.ticks(s.interval)
	defer stop()

	log.Info().Dur("interval", s.interval).Msg("session cleanup scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session cleanup scheduler stopped")
			return nil
		case <-ticks:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	started := s.nowTime()
	deleted, err := s.purger.PurgeExpired(ctx, started)
	if err != nil {
		log.Error().Err(err).Int("deleted", deleted).Msg("session cleanup failed")
		return deleted, err
	}
	log.Info().Int("deleted", deleted).Dur("took", time.Since(started)).Msg("cleaned up expired sessions")
	return deleted, nil
}
