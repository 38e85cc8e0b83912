package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeros/timeros/internal/llm"
	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/parser"
	"github.com/timeros/timeros/internal/scheduler"
	"github.com/timeros/timeros/internal/store"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// recordingRunner records manual trigger calls.
type recordingRunner struct {
	mu   sync.Mutex
	runs []string
	done chan struct{}
}

func (r *recordingRunner) Run(_ context.Context, taskID string) error {
	r.mu.Lock()
	r.runs = append(r.runs, taskID)
	r.mu.Unlock()
	if r.done != nil {
		close(r.done)
	}
	return nil
}

type fixture struct {
	service   *TaskService
	tasks     *store.MemoryTaskRepository
	scheduler *scheduler.Scheduler
	runner    *recordingRunner
}

func newFixture(t *testing.T, modelReply string) *fixture {
	t.Helper()

	tasks := store.NewMemoryTaskRepository()
	runner := &recordingRunner{}
	log := testLogger(t)

	sched, err := scheduler.New(scheduler.Config{
		Fire:   func(context.Context, string) {},
		Logger: log,
	})
	require.NoError(t, err)

	p, err := parser.New(parser.Config{
		Provider: llm.NewFixedProvider(modelReply),
		Logger:   log,
	})
	require.NoError(t, err)

	return &fixture{
		service:   NewTaskService(tasks, p, sched, runner, log),
		tasks:     tasks,
		scheduler: sched,
		runner:    runner,
	}
}

const recurringReply = `{
  "name": "Weekly digest",
  "task_type": "research_task",
  "schedule": "2026-09-04T09:00:00Z",
  "is_recurring": true,
  "cron_expression": "0 9 * * 5",
  "params": {"topic": "industry news"}
}`

const oneshotReply = `{
  "name": "Q3 report",
  "task_type": "report_task",
  "schedule": "2026-10-01T08:00:00Z",
  "is_recurring": false,
  "params": {}
}`

func TestCreate_RecurringTask(t *testing.T) {
	f := newFixture(t, recurringReply)
	ctx := context.Background()

	task, err := f.service.Create(ctx, "Research industry news every Friday at 9am")
	require.NoError(t, err)

	assert.Equal(t, "Weekly digest", task.Name)
	assert.Equal(t, store.TaskTypeResearch, task.TaskType)
	assert.Equal(t, store.TaskStatusPending, task.Status)
	assert.True(t, task.IsRecurring)
	require.NotNil(t, task.CronExpression)
	assert.Equal(t, "0 9 * * 5", *task.CronExpression)
	assert.Equal(t, "Research industry news every Friday at 9am", task.Description)

	// Persisted and scheduled.
	stored, err := f.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, stored.ID)

	jobs := f.scheduler.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, task.ID, jobs[0].TaskID)
	assert.True(t, jobs[0].Recurring)
}

func TestCreate_RollsBackUnschedulableTask(t *testing.T) {
	// The model produces a cron expression the scheduler rejects.
	f := newFixture(t, `{
  "name": "Broken",
  "task_type": "research_task",
  "schedule": "2026-09-04T09:00:00Z",
  "is_recurring": true,
  "cron_expression": "every friday"
}`)
	ctx := context.Background()

	_, err := f.service.Create(ctx, "Do something every Friday")
	require.Error(t, err)
	assert.True(t, errors.Is(err, scheduler.ErrInvalidCron))

	// The rolled-back task is not visible and nothing is scheduled.
	listed, total, err := f.tasks.List(ctx, store.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, listed)
	assert.Empty(t, f.scheduler.Jobs())
}

func TestCreate_ParseErrorPropagates(t *testing.T) {
	f := newFixture(t, "no JSON here at all")

	_, err := f.service.Create(context.Background(), "gibberish in, gibberish out")
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrParse))
}

func TestUpdate_RejectsRecurringWithoutCron(t *testing.T) {
	f := newFixture(t, oneshotReply)
	ctx := context.Background()

	task, err := f.service.Create(ctx, "Compile the Q3 report on October 1st")
	require.NoError(t, err)

	recurring := true
	_, err = f.service.Update(ctx, task.ID, UpdateTaskRequest{IsRecurring: &recurring})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scheduler.ErrScheduling))
}

func TestUpdate_Reschedules(t *testing.T) {
	f := newFixture(t, recurringReply)
	ctx := context.Background()

	task, err := f.service.Create(ctx, "Research industry news every Friday at 9am")
	require.NoError(t, err)

	newCron := "0 18 * * 1"
	updated, err := f.service.Update(ctx, task.ID, UpdateTaskRequest{CronExpression: &newCron})
	require.NoError(t, err)
	require.NotNil(t, updated.CronExpression)
	assert.Equal(t, newCron, *updated.CronExpression)

	jobs := f.scheduler.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, newCron, jobs[0].CronExpression)
}

func TestPauseAndResume(t *testing.T) {
	f := newFixture(t, recurringReply)
	ctx := context.Background()

	task, err := f.service.Create(ctx, "Research industry news every Friday at 9am")
	require.NoError(t, err)

	require.NoError(t, f.service.Pause(ctx, task.ID))
	paused, err := f.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskStatusPaused, paused.Status)
	assert.Empty(t, f.scheduler.Jobs())

	// Resume rebuilds the job from the stored definition.
	require.NoError(t, f.service.Resume(ctx, task.ID))
	resumed, err := f.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskStatusPending, resumed.Status)
	require.Len(t, f.scheduler.Jobs(), 1)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, oneshotReply)
	ctx := context.Background()

	task, err := f.service.Create(ctx, "Compile the Q3 report on October 1st")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, task.ID))

	_, err = f.tasks.GetByID(ctx, task.ID)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
	assert.Empty(t, f.scheduler.Jobs())

	err = f.service.Delete(ctx, task.ID)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
}

func TestTriggerNow(t *testing.T) {
	f := newFixture(t, oneshotReply)
	f.runner.done = make(chan struct{})
	ctx := context.Background()

	task, err := f.service.Create(ctx, "Compile the Q3 report on October 1st")
	require.NoError(t, err)

	require.NoError(t, f.service.TriggerNow(ctx, task.ID))

	select {
	case <-f.runner.done:
	case <-time.After(time.Second):
		t.Fatal("Manual trigger never reached the runner")
	}

	f.runner.mu.Lock()
	defer f.runner.mu.Unlock()
	require.Len(t, f.runner.runs, 1)
	assert.Equal(t, task.ID, f.runner.runs[0])
}

func TestTriggerNow_UnknownTask(t *testing.T) {
	f := newFixture(t, oneshotReply)

	err := f.service.TriggerNow(context.Background(), "no-such-task")
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
}
