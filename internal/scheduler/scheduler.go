// Package scheduler triggers engine sweeps and retention cleanup on cron
// schedules. Overlapping runs of the same job are skipped.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roach88/cartrecovery/internal/engine"
	"github.com/roach88/cartrecovery/internal/logger"
)

// Sweeper runs one engine pass. Implemented by *engine.Processor.
type Sweeper interface {
	Process(ctx context.Context) (engine.Summary, error)
}

// Cleaner deletes old carts. Implemented by *store.Store.
type Cleaner interface {
	DeleteCartsOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

// Config selects when jobs run.
type Config struct {
	Automation    string // cron expression, descriptors allowed
	Cleanup       string
	RetentionDays int // <= 0 disables cleanup
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	sweeper Sweeper
	cleaner Cleaner
	log     logger.Logger
	now     func() time.Time
	ctx     context.Context
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNow replaces time.Now for retention thresholds.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New registers the jobs described by cfg. The cleanup job is only
// registered when retention is enabled.
func New(cfg Config, sweeper Sweeper, cleaner Cleaner, log logger.Logger, opts ...Option) (*Scheduler, error) {
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:     cfg,
		sweeper: sweeper,
		cleaner: cleaner,
		log:     log,
		now:     time.Now,
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.cron.AddFunc(cfg.Automation, func() { _ = s.RunSweep(s.ctx) }); err != nil {
		return nil, fmt.Errorf("schedule automation %q: %w", cfg.Automation, err)
	}
	if cfg.RetentionDays > 0 {
		if _, err := s.cron.AddFunc(cfg.Cleanup, func() { _ = s.RunCleanup(s.ctx) }); err != nil {
			return nil, fmt.Errorf("schedule cleanup %q: %w", cfg.Cleanup, err)
		}
	}
	return s, nil
}

// RunSweep runs one engine pass and logs its outcome.
func (s *Scheduler) RunSweep(ctx context.Context) error {
	sum, err := s.sweeper.Process(ctx)
	if err != nil {
		s.log.Error("automation sweep failed", "error", err)
		return err
	}
	s.log.Info("automation sweep complete",
		"rules", sum.Rules,
		"scanned", sum.Scanned,
		"executed", sum.Executed,
		"record_failures", sum.RecordFailures)
	return nil
}

// RunCleanup deletes carts older than the retention window. It is a no-op
// when retention is disabled.
func (s *Scheduler) RunCleanup(ctx context.Context) error {
	if s.cfg.RetentionDays <= 0 {
		s.log.Debug("retention disabled, skipping cleanup")
		return nil
	}
	threshold := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	n, err := s.cleaner.DeleteCartsOlderThan(ctx, threshold)
	if err != nil {
		s.log.Error("cart cleanup failed", "error", err)
		return err
	}
	s.log.Info("cart cleanup complete", "deleted", n, "threshold", threshold.Format(time.RFC3339))
	return nil
}

// Run starts the jobs and blocks until ctx is done, then waits for running
// jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info("scheduler started", "automation", s.cfg.Automation, "cleanup_enabled", s.cfg.RetentionDays > 0)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
