package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypePurgeStale represents the maintenance task that sweeps decayed
	// memory fragments out of the store.
	TaskTypePurgeStale = "purge_stale"
)

// Task represents a unit of background work to be processed.
//
// Tasks here are idempotent maintenance work: nothing is persisted across
// restarts, and a task lost to a crash is simply enqueued again by its
// scheduler on the next boot.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}
