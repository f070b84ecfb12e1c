// Package scheduler runs the periodic session sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/config"
	"github.com/terralink/portal/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepTimeout = 30 * time.Second

// Sweeper deletes expired sessions on an interval. Redis-backed stores
// expire on their own; the sweep is then a cheap no-op.
type Sweeper struct {
	auth     domain.Service
	interval time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
	done     chan struct{}
	stopped  chan struct{}
}

func NewSweeper(cfg config.Config, auth domain.Service, m *metrics.Metrics, log *zap.Logger) *Sweeper {
	return &Sweeper{
		auth:     auth,
		interval: cfg.SweepInterval,
		metrics:  m,
		log:      log.Named("scheduler.sweeper"),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run blocks until Stop is called, sweeping once per interval. Sweep
// failures are logged and the loop keeps going.
func (s *Sweeper) Run() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.auth.SweepExpiredSessions(ctx)
	if err != nil {
		s.log.Error("session sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.metrics.RecordSessionsSwept(ctx, removed)
	}
}

// Stop ends the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.done)
	<-s.stopped
}

var Module = fx.Module("scheduler",
	fx.Provide(NewSweeper),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.Run()
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}
