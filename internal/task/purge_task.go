package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/memory"
	"github.com/fennwick/glossa-api/internal/metrics"
)

// PurgeStaleTask sweeps decayed fragments out of the memory store. The sweep
// itself lives in the memory service and stays independently invokable;
// this wrapper only gives it a place in the background schedule.
type PurgeStaleTask struct {
	id     uuid.UUID
	memory memory.MemoryService
	logger *slog.Logger

	mu     sync.Mutex
	status TaskStatus
}

// NewPurgeStaleTask creates a purge task bound to the given memory service.
func NewPurgeStaleTask(memorySvc memory.MemoryService, logger *slog.Logger) (*PurgeStaleTask, error) {
	if memorySvc == nil {
		return nil, errors.New("memory service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PurgeStaleTask{
		id:     uuid.New(),
		memory: memorySvc,
		logger: logger.With(slog.String("component", "purge_stale_task")),
		status: TaskStatusPending,
	}, nil
}

// ID implements the Task interface.
func (t *PurgeStaleTask) ID() uuid.UUID {
	return t.id
}

// Type implements the Task interface.
func (t *PurgeStaleTask) Type() string {
	return TaskTypePurgeStale
}

// Status implements the Task interface.
func (t *PurgeStaleTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *PurgeStaleTask) setStatus(status TaskStatus) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

// Execute implements the Task interface.
func (t *PurgeStaleTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	deleted, err := t.memory.PurgeStale(ctx)
	if err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("purge sweep failed: %w", err)
	}

	metrics.FragmentsPurged.Add(float64(deleted))
	t.logger.Info("purge sweep completed",
		slog.String("task_id", t.id.String()),
		slog.Int64("deleted", deleted))
	t.setStatus(TaskStatusCompleted)
	return nil
}
