// Package scheduler runs the periodic recalculation job that keeps the
// current month's ledger and summaries aligned with imported data.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/clock"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

const recalcLockName = "commission.recalculate"

// Config tunes the scheduler loop.
type Config struct {
	// Interval between recalculation attempts.
	Interval time.Duration

	// Lease bounds how long one run may hold the job lock.
	Lease time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		Lease:    30 * time.Minute,
	}
}

type Scheduler struct {
	db  *gorm.DB
	log *zap.Logger
	cfg Config
	clk clock.Clock

	ledgerSvc ledgerdomain.Service

	stop chan struct{}
	done chan struct{}
}

type SchedulerParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	LedgerSvc ledgerdomain.Service
}

func NewScheduler(p SchedulerParam) *Scheduler {
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler"),
		cfg:       DefaultConfig(),
		clk:       p.Clock,
		ledgerSvc: p.LedgerSvc,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// RunOnce recalculates the current month under the job lease. It is
// the unit the loop repeats and what tests drive directly.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clk.Now()
	ok, err := acquireLock(ctx, s.db, recalcLockName, now, s.cfg.Lease)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("recalculation lease held elsewhere")
		return nil
	}
	defer func() {
		if err := releaseLock(ctx, s.db, recalcLockName, s.clk.Now()); err != nil {
			s.log.Warn("release job lock failed", zap.Error(err))
		}
	}()

	m := month.Of(now)
	stats, err := s.ledgerSvc.Calculate(ctx, m)
	if err != nil {
		return err
	}
	s.log.Info("scheduled recalculation complete",
		zap.String("month", m.String()),
		zap.Int("calculated", stats.Calculated),
		zap.Int("rate_misses", stats.RateMisses),
	)
	return nil
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Lease)
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("scheduled recalculation failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Run binds the scheduler loop to the fx lifecycle.
func Run(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.loop()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(Run),
)
