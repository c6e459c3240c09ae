package cleanup_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/payslip-server/cleanup"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/jrsteele09/payslip-server/sessions/sessionstest"
	"github.com/stretchr/testify/require"
)

type recordingPurger struct {
	mu    sync.Mutex
	calls []time.Time
	errs  []error
	done  chan struct{}
}

func (p *recordingPurger) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if len(p.calls) < len(p.errs) {
		err = p.errs[len(p.calls)]
	}
	p.calls = append(p.calls, now)
	p.done <- struct{}{}
	return 1, err
}

func manualTicker(ch chan time.Time) cleanup.Option {
	return cleanup.WithTicker(func(time.Duration) (<-chan time.Time, func()) {
		return ch, func() {}
	})
}

func TestRunContinuesAfterFailure(t *testing.T) {
	purger := &recordingPurger{
		errs: []error{errors.New("store unavailable"), nil},
		done: make(chan struct{}, 2),
	}
	ticks := make(chan time.Time)
	s := cleanup.New(purger, time.Hour, manualTicker(ticks))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- s.Run(ctx) }()

	ticks <- time.Now()
	<-purger.done
	ticks <- time.Now()
	<-purger.done

	cancel()
	require.NoError(t, <-stopped)

	purger.mu.Lock()
	defer purger.mu.Unlock()
	require.Len(t, purger.calls, 2)
}

func TestRunOnceUsesCurrentTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	purger := &recordingPurger{done: make(chan struct{}, 1)}
	s := cleanup.New(purger, 0, cleanup.WithNowTime(func() time.Time { return now }))

	deleted, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.Equal(t, []time.Time{now}, purger.calls)
}

func TestRunOnceAgainstManager(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	manager, err := sessions.NewManager(repo, refresherFunc(nil))
	require.NoError(t, err)

	now := time.Now()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, sessionstest.NewSession(now.Add(-time.Minute))))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, sessionstest.NewSession(now.Add(time.Hour))))
	}

	s := cleanup.New(manager, time.Hour, cleanup.WithNowTime(func() time.Time { return now }))
	deleted, err := s.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, deleted)
	require.Equal(t, 2, repo.Len())
}

type refresherFunc func(ctx context.Context, refreshToken string) (sessions.Tokens, error)

func (f refresherFunc) RefreshTokens(ctx context.Context, refreshToken string) (sessions.Tokens, error) {
	return f(ctx, refreshToken)
}
