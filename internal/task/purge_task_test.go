package task

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennwick/glossa-api/internal/domain/retention"
	"github.com/fennwick/glossa-api/internal/memory"
	"github.com/fennwick/glossa-api/internal/platform/memstore"
)

// failingMemory overrides only the purge path; the task touches nothing else.
type failingMemory struct {
	memory.MemoryService
	err error
}

func (f *failingMemory) PurgeStale(ctx context.Context) (int64, error) {
	return 0, f.err
}

func TestPurgeStaleTaskExecute(t *testing.T) {
	t.Parallel()

	memorySvc, err := memory.NewMemoryService(
		memstore.NewFragmentStore(),
		nil,
		retention.NewDefaultService(),
		memory.PurgeConfig{},
		slog.Default(),
	)
	require.NoError(t, err)

	task, err := NewPurgeStaleTask(memorySvc, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, TaskTypePurgeStale, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, task.Status())
}

func TestPurgeStaleTaskExecuteFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("store offline")
	task, err := NewPurgeStaleTask(&failingMemory{err: boom}, slog.Default())
	require.NoError(t, err)

	err = task.Execute(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, TaskStatusFailed, task.Status())
}

func TestNewPurgeStaleTaskValidation(t *testing.T) {
	t.Parallel()

	_, err := NewPurgeStaleTask(nil, slog.Default())
	assert.Error(t, err)
}
