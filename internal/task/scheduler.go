package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// TaskFactory builds a fresh task instance for each scheduled run.
type TaskFactory func() Task

// Scheduler periodically enqueues a task on a fixed interval. One task is
// also enqueued at startup: scheduled work here is idempotent maintenance,
// so running it again right after a restart costs nothing and covers any
// run lost to the restart.
type Scheduler struct {
	runner   *TaskRunner
	factory  TaskFactory
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// NewScheduler creates a scheduler that submits factory-built tasks to the
// runner every interval.
func NewScheduler(
	runner *TaskRunner,
	factory TaskFactory,
	interval time.Duration,
	logger *slog.Logger,
) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if factory == nil {
		return nil, errors.New("task factory cannot be nil")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		runner:   runner,
		factory:  factory,
		interval: interval,
		logger:   logger.With(slog.String("component", "task_scheduler")),
	}, nil
}

// Start begins the schedule loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop halts the schedule loop. Tasks already submitted keep running under
// the runner's lifecycle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.submit(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.submit(ctx)
		}
	}
}

func (s *Scheduler) submit(ctx context.Context) {
	t := s.factory()
	if err := s.runner.Submit(ctx, t); err != nil {
		s.logger.Error("failed to submit scheduled task",
			"task_type", t.Type(),
			"error", err)
		return
	}
	s.logger.Debug("scheduled task submitted",
		"task_id", t.ID(),
		"task_type", t.Type())
}
