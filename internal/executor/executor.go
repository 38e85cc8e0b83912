// Package executor runs one task end to end: it claims the task, writes the
// execution record, drives the agent, and persists the outcome. Status
// transitions are committed individually so a crash leaves an inspectable
// trail rather than a silent rollback.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/timeros/timeros/internal/agent"
	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/metrics"
	"github.com/timeros/timeros/internal/store"
	"github.com/timeros/timeros/internal/tools"
)

// AgentRunner drives one decision loop run. Satisfied by *agent.Runner.
type AgentRunner interface {
	Execute(ctx context.Context, prompt string) (*agent.Result, error)
}

// RunnerFactory builds a runner bound to the tool subset for one run.
type RunnerFactory func(registry *tools.Registry) (AgentRunner, error)

// Config holds executor dependencies.
type Config struct {
	Tasks      store.TaskRepository
	Executions store.ExecutionRepository
	Registry   *tools.Registry
	NewRunner  RunnerFactory
	Logger     *logger.Logger
	Metrics    *metrics.PrometheusMetrics

	// RunTimeout bounds one full run. Zero means no executor-imposed limit.
	RunTimeout time.Duration
}

// Executor coordinates task runs. A per-task lock guarantees at most one
// in-flight run per task id within this process.
type Executor struct {
	tasks      store.TaskRepository
	executions store.ExecutionRepository
	registry   *tools.Registry
	newRunner  RunnerFactory
	logger     *logger.Logger
	metrics    *metrics.PrometheusMetrics
	runTimeout time.Duration

	mu      sync.Mutex
	running map[string]struct{}
}

// New creates an executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Tasks == nil || cfg.Executions == nil {
		return nil, fmt.Errorf("repositories cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if cfg.NewRunner == nil {
		return nil, fmt.Errorf("runner factory cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Executor{
		tasks:      cfg.Tasks,
		executions: cfg.Executions,
		registry:   cfg.Registry,
		newRunner:  cfg.NewRunner,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		runTimeout: cfg.RunTimeout,
		running:    make(map[string]struct{}),
	}, nil
}

// Run executes the task once. The firing is rejected before any row is
// written with ErrAlreadyRunning when a previous run of the same task is
// still in flight, and with ErrTaskNotRunnable when the task's status is not
// pending. The status gate keeps a still-armed cron entry from rerunning a
// failed or paused recurring task; such a task fires again only after an
// operator resumes it.
func (e *Executor) Run(ctx context.Context, taskID string) error {
	if !e.tryLock(taskID) {
		e.logger.WarnCtx(ctx, "Firing skipped, task already running",
			logger.Field{Key: "task_id", Value: taskID})
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, taskID)
	}
	defer e.unlock(taskID)

	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if task.Status != store.TaskStatusPending {
		e.logger.WarnCtx(ctx, "Firing skipped, task is not pending",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "status", Value: task.Status})
		return fmt.Errorf("%w: task %s is %s", ErrTaskNotRunnable, task.ID, task.Status)
	}

	if err := e.tasks.UpdateStatus(ctx, task.ID, store.TaskStatusRunning); err != nil {
		return fmt.Errorf("failed to mark task running: %w", err)
	}

	start := time.Now()
	execution := &store.Execution{
		TaskID:        task.ID,
		Status:        store.ExecutionStatusRunning,
		ExecutionTime: start.UTC(),
	}
	if err := e.executions.Create(ctx, execution); err != nil {
		return fmt.Errorf("failed to create execution record: %w", err)
	}

	e.logger.InfoCtx(ctx, "Task run started",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "execution_id", Value: execution.ID},
		logger.Field{Key: "task_type", Value: task.TaskType})

	result, runErr := e.runAgent(ctx, task)

	// time.Since uses the monotonic clock, so wall-clock jumps during the
	// run do not distort the recorded duration.
	duration := time.Since(start).Seconds()

	if runErr != nil {
		e.persistFailure(ctx, task, execution, runErr, duration)
		return fmt.Errorf("%w: task %s: %w", ErrTaskExecution, task.ID, runErr)
	}

	return e.persistSuccess(ctx, task, execution, result, duration)
}

func (e *Executor) runAgent(ctx context.Context, task *store.Task) (*agent.Result, error) {
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	runner, err := e.newRunner(e.registry.ForTaskType(string(task.TaskType)))
	if err != nil {
		return nil, fmt.Errorf("failed to build runner: %w", err)
	}

	return runner.Execute(ctx, buildPrompt(task))
}

// persistSuccess commits the execution result, then returns the task to
// pending (recurring) or marks it completed (one-shot).
func (e *Executor) persistSuccess(ctx context.Context, task *store.Task, execution *store.Execution, result *agent.Result, duration float64) error {
	payload, err := json.Marshal(store.ExecutionResult{
		TaskType:      task.TaskType,
		FinalResponse: result.FinalResponse,
		StepCount:     result.StepCount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	resultStr := string(payload)
	execution.Status = store.ExecutionStatusCompleted
	execution.Result = &resultStr
	execution.DurationSeconds = &duration
	if err := e.executions.Update(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist execution result: %w", err)
	}

	nextStatus := store.TaskStatusCompleted
	if task.IsRecurring {
		nextStatus = store.TaskStatusPending
	}
	if err := e.tasks.UpdateStatus(ctx, task.ID, nextStatus); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RecordExecution(string(store.ExecutionStatusCompleted), time.Duration(duration*float64(time.Second)))
	}

	e.logger.InfoCtx(ctx, "Task run completed",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "execution_id", Value: execution.ID},
		logger.Field{Key: "steps", Value: result.StepCount},
		logger.Field{Key: "duration_seconds", Value: duration})
	return nil
}

// persistFailure marks both the execution and the task failed. Recurring
// tasks stay failed too; an operator resumes them deliberately instead of the
// scheduler retrying a task that just proved broken.
func (e *Executor) persistFailure(ctx context.Context, task *store.Task, execution *store.Execution, runErr error, duration float64) {
	message := runErr.Error()
	execution.Status = store.ExecutionStatusFailed
	execution.ErrorMessage = &message
	execution.DurationSeconds = &duration
	if err := e.executions.Update(ctx, execution); err != nil {
		e.logger.ErrorCtx(ctx, "Failed to persist execution failure", err,
			logger.Field{Key: "execution_id", Value: execution.ID})
	}

	if err := e.tasks.UpdateStatus(ctx, task.ID, store.TaskStatusFailed); err != nil {
		e.logger.ErrorCtx(ctx, "Failed to mark task failed", err,
			logger.Field{Key: "task_id", Value: task.ID})
	}

	if e.metrics != nil {
		e.metrics.RecordExecution(string(store.ExecutionStatusFailed), time.Duration(duration*float64(time.Second)))
	}

	e.logger.ErrorCtx(ctx, "Task run failed", runErr,
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "execution_id", Value: execution.ID},
		logger.Field{Key: "duration_seconds", Value: duration})
}

func (e *Executor) tryLock(taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.running[taskID]; ok {
		return false
	}
	e.running[taskID] = struct{}{}
	return true
}

func (e *Executor) unlock(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, taskID)
}
