package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner is what the scheduler drives on every tick.
type Runner interface {
	ProcessDueExpenses(ctx context.Context, asOf time.Time) ([]Conversion, error)
}

// Scheduler invokes the processor on a fixed wall-clock cadence. It is
// an injected component with an explicit lifecycle, not a process-wide
// singleton: tests drive the runner directly or start it with a short
// interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the tick loop. Starting an already-running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running")
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.stop, s.done)

	s.logger.Info("scheduler started", "interval", s.interval)
}

// Stop halts the tick loop and waits for an in-flight run to finish.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.running = false
	s.mu.Unlock()

	close(stop)
	<-done

	s.logger.Info("scheduler stopped")
}

// Running reports whether the tick loop is active, for the system
// status endpoint.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the configured tick cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.runner.ProcessDueExpenses(ctx, s.now()); err != nil {
				// Transient by contract; the next tick retries.
				s.logger.Error("scheduled processing run failed", "error", err)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
