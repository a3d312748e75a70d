package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTask is a controllable Task for runner tests.
type testTask struct {
	id       uuid.UUID
	taskType string
	execute  func(ctx context.Context) error
	runs     atomic.Int64
}

func newTestTask(execute func(ctx context.Context) error) *testTask {
	return &testTask{
		id:       uuid.New(),
		taskType: "test_task",
		execute:  execute,
	}
}

func (t *testTask) ID() uuid.UUID      { return t.id }
func (t *testTask) Type() string       { return t.taskType }
func (t *testTask) Status() TaskStatus { return TaskStatusPending }

func (t *testTask) Execute(ctx context.Context) error {
	t.runs.Add(1)
	if t.execute != nil {
		return t.execute(ctx)
	}
	return nil
}

func testRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              8,
		StuckTaskAge:           time.Minute,
		StuckTaskCheckInterval: time.Minute,
	}
}

func TestTaskRunnerExecutesSubmittedTasks(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(testRunnerConfig(), slog.Default())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	done := make(chan struct{})
	task := newTestTask(func(ctx context.Context) error {
		close(done)
		return nil
	})

	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}
}

func TestTaskRunnerInvokesErrorHandler(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(testRunnerConfig(), slog.Default())

	var handled sync.WaitGroup
	handled.Add(1)
	var handledErr error
	runner.SetErrorHandler(func(task Task, err error) {
		handledErr = err
		handled.Done()
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	boom := errors.New("boom")
	require.NoError(t, runner.Submit(context.Background(), newTestTask(func(ctx context.Context) error {
		return boom
	})))

	handled.Wait()
	assert.ErrorIs(t, handledErr, boom)
}

func TestTaskRunnerQueueFull(t *testing.T) {
	t.Parallel()

	cfg := testRunnerConfig()
	cfg.QueueSize = 1
	runner := NewTaskRunner(cfg, slog.Default())
	// Not started: nothing drains the queue.

	require.NoError(t, runner.Submit(context.Background(), newTestTask(nil)))
	err := runner.Submit(context.Background(), newTestTask(nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestTaskRunnerStopRejectsSubmissions(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(testRunnerConfig(), slog.Default())
	require.NoError(t, runner.Start())
	runner.Stop()

	err := runner.Submit(context.Background(), newTestTask(nil))
	assert.ErrorIs(t, err, ErrRunnerStopped)

	// Stop is idempotent.
	runner.Stop()
}

func TestTaskRunnerStopCancelsInFlightTask(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(testRunnerConfig(), slog.Default())
	require.NoError(t, runner.Start())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	task := newTestTask(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	require.NoError(t, runner.Submit(context.Background(), task))
	<-started

	runner.Stop()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight task did not observe cancellation")
	}
}

func TestSchedulerSubmitsOnStartAndInterval(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(testRunnerConfig(), slog.Default())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	var runs atomic.Int64
	factory := func() Task {
		return newTestTask(func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})
	}

	scheduler, err := NewScheduler(runner, factory, 50*time.Millisecond, slog.Default())
	require.NoError(t, err)
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond,
		"scheduler should submit at startup and then on every tick")
}

func TestSchedulerStop(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(testRunnerConfig(), slog.Default())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	var runs atomic.Int64
	scheduler, err := NewScheduler(runner, func() Task {
		return newTestTask(func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})
	}, 20*time.Millisecond, slog.Default())
	require.NoError(t, err)
	require.NoError(t, scheduler.Start())

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
	scheduler.Stop()

	settled := runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), settled+1, "no new submissions after Stop")

	// Stop is idempotent.
	scheduler.Stop()
}

func TestNewSchedulerValidation(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(testRunnerConfig(), slog.Default())
	factory := func() Task { return newTestTask(nil) }

	_, err := NewScheduler(nil, factory, time.Minute, slog.Default())
	assert.Error(t, err)

	_, err = NewScheduler(runner, nil, time.Minute, slog.Default())
	assert.Error(t, err)

	_, err = NewScheduler(runner, factory, 0, slog.Default())
	assert.Error(t, err)
}
