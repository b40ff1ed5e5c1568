package usecase

import (
	"context"
	"sync"
	"time"

	"SignalFuse/pkg/logger"
)

const (
	defaultTickInterval   = 2 * time.Minute
	defaultRetentionEvery = time.Hour
	defaultRetentionAge   = 30 * 24 * time.Hour
)

// Scheduler drives the pipeline with explicit ticks: collect, fuse, then
// evaluate rules. A tick runs to completion before the next begins, so a slow
// feed delays evaluation rather than overlapping it.
type Scheduler struct {
	registry *Registry
	engine   *RuleEngine
	logger   *logger.Logger

	symbols        []string
	interval       time.Duration
	retentionEvery time.Duration
	retentionAge   time.Duration

	lastSweep time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	once      sync.Once
}

// SchedulerOption configures Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets the gap between pipeline ticks.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRetention sets how often expired alerts are purged and how old an
// alert must be to qualify.
func WithRetention(every, age time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if every > 0 {
			s.retentionEvery = every
		}
		if age > 0 {
			s.retentionAge = age
		}
	}
}

// NewScheduler creates a scheduler over the tracked symbols.
func NewScheduler(registry *Registry, engine *RuleEngine, symbols []string, lgr *logger.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		registry:       registry,
		engine:         engine,
		logger:         lgr,
		symbols:        symbols,
		interval:       defaultTickInterval,
		retentionEvery: defaultRetentionEvery,
		retentionAge:   defaultRetentionAge,
		stop:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick runs one full pipeline pass synchronously.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()
	for _, sym := range s.symbols {
		if _, err := s.registry.CollectAll(ctx, sym); err != nil {
			s.logger.Warn("collection pass failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	}
	s.engine.EvaluateAll(ctx)

	if time.Since(s.lastSweep) >= s.retentionEvery {
		s.engine.PurgeExpired(ctx, time.Now().Add(-s.retentionAge))
		s.lastSweep = time.Now()
	}
	s.logger.Debug("scheduler tick done",
		logger.Int("symbols", len(s.symbols)),
		logger.Duration("took", time.Since(start)))
}

// Start runs the tick loop until Stop or context cancellation. The first
// tick fires immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-timer.C:
				s.Tick(ctx)
				timer.Reset(s.interval)
			}
		}
	}()
	s.logger.Info("scheduler started",
		logger.Duration("interval", s.interval),
		logger.Int("symbols", len(s.symbols)))
}

// Stop halts the loop and waits for an in-progress tick to settle.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
