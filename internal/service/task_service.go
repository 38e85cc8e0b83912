// Package service implements the application operations behind the HTTP API:
// task lifecycle management and execution history queries.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/parser"
	"github.com/timeros/timeros/internal/scheduler"
	"github.com/timeros/timeros/internal/store"
)

// TaskRunner starts one task run. Satisfied by *executor.Executor.
type TaskRunner interface {
	Run(ctx context.Context, taskID string) error
}

// TaskService owns the task lifecycle: creation from natural language,
// updates, pause/resume, deletion, and manual triggering. Every mutation
// keeps the durable store and the in-memory schedule in step.
type TaskService struct {
	tasks     store.TaskRepository
	parser    *parser.Parser
	scheduler *scheduler.Scheduler
	runner    TaskRunner
	logger    *logger.Logger
}

// NewTaskService creates a task service.
func NewTaskService(tasks store.TaskRepository, p *parser.Parser, sched *scheduler.Scheduler, runner TaskRunner, log *logger.Logger) *TaskService {
	return &TaskService{
		tasks:     tasks,
		parser:    p,
		scheduler: sched,
		runner:    runner,
		logger:    log,
	}
}

// UpdateTaskRequest carries the mutable task fields. Nil pointers leave the
// field unchanged.
type UpdateTaskRequest struct {
	Name           *string        `json:"name"`
	Description    *string        `json:"description"`
	Schedule       *time.Time     `json:"schedule"`
	CronExpression *string        `json:"cron_expression"`
	IsRecurring    *bool          `json:"is_recurring"`
	Params         *store.JSONMap `json:"params"`
}

// Create parses a natural-language description into a task, persists it, and
// registers its schedule. A task that cannot be scheduled is rolled back so
// the store never holds a pending task the scheduler does not know about.
func (s *TaskService) Create(ctx context.Context, description string) (*store.Task, error) {
	parsed, err := s.parser.Parse(ctx, description)
	if err != nil {
		return nil, err
	}

	task := &store.Task{
		Name:        parsed.Name,
		Description: description,
		TaskType:    parsed.TaskType,
		Schedule:    parsed.Schedule,
		IsRecurring: parsed.IsRecurring,
		Status:      store.TaskStatusPending,
		Params:      parsed.Params,
	}
	if parsed.CronExpression != "" {
		cronExpr := parsed.CronExpression
		task.CronExpression = &cronExpr
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if err := s.scheduleTask(task); err != nil {
		if delErr := s.tasks.SoftDelete(ctx, task.ID); delErr != nil {
			s.logger.ErrorCtx(ctx, "Failed to roll back unschedulable task", delErr,
				logger.Field{Key: "task_id", Value: task.ID})
		}
		return nil, err
	}

	s.logger.InfoCtx(ctx, "Task created",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.TaskType},
		logger.Field{Key: "recurring", Value: task.IsRecurring})
	return task, nil
}

// Get returns a task by id.
func (s *TaskService) Get(ctx context.Context, id string) (*store.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// List returns tasks matching the filter plus the total count.
func (s *TaskService) List(ctx context.Context, filter store.TaskFilter) ([]*store.Task, int64, error) {
	return s.tasks.List(ctx, filter)
}

// Update applies the request to the task and re-registers its schedule.
func (s *TaskService) Update(ctx context.Context, id string, req UpdateTaskRequest) (*store.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Schedule != nil {
		task.Schedule = req.Schedule.UTC()
	}
	if req.CronExpression != nil {
		if *req.CronExpression == "" {
			task.CronExpression = nil
		} else {
			task.CronExpression = req.CronExpression
		}
	}
	if req.IsRecurring != nil {
		task.IsRecurring = *req.IsRecurring
	}
	if req.Params != nil {
		task.Params = *req.Params
	}

	if task.IsRecurring && (task.CronExpression == nil || *task.CronExpression == "") {
		return nil, fmt.Errorf("%w: recurring task needs a cron expression", scheduler.ErrScheduling)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	// Re-register only tasks that can still fire.
	if task.Status == store.TaskStatusPending {
		if err := s.scheduleTask(task); err != nil {
			return nil, err
		}
	}

	s.logger.InfoCtx(ctx, "Task updated", logger.Field{Key: "task_id", Value: task.ID})
	return task, nil
}

// Delete soft-deletes the task and drops it from the scheduler. The row stays
// for execution-history audits.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.tasks.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.scheduler.Remove(id)

	s.logger.InfoCtx(ctx, "Task deleted", logger.Field{Key: "task_id", Value: id})
	return nil
}

// Pause stops the task from firing without losing its definition.
func (s *TaskService) Pause(ctx context.Context, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.UpdateStatus(ctx, task.ID, store.TaskStatusPaused); err != nil {
		return err
	}
	s.scheduler.Remove(task.ID)

	s.logger.InfoCtx(ctx, "Task paused", logger.Field{Key: "task_id", Value: id})
	return nil
}

// Resume re-arms a paused or failed task. The schedule is rebuilt from the
// stored definition, so Resume also works after a restart dropped the
// in-memory job.
func (s *TaskService) Resume(ctx context.Context, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.UpdateStatus(ctx, task.ID, store.TaskStatusPending); err != nil {
		return err
	}
	if err := s.scheduleTask(task); err != nil {
		return err
	}

	s.logger.InfoCtx(ctx, "Task resumed", logger.Field{Key: "task_id", Value: id})
	return nil
}

// TriggerNow starts a run immediately, off the schedule. The run happens in
// the background; the method returns once the task is known to exist.
func (s *TaskService) TriggerNow(ctx context.Context, id string) error {
	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		return err
	}

	go func() {
		if err := s.runner.Run(context.Background(), id); err != nil {
			s.logger.Error("Manual trigger run failed", err,
				logger.Field{Key: "task_id", Value: id})
		}
	}()

	s.logger.InfoCtx(ctx, "Task triggered manually", logger.Field{Key: "task_id", Value: id})
	return nil
}

func (s *TaskService) scheduleTask(task *store.Task) error {
	job := scheduler.Job{
		TaskID:    task.ID,
		Recurring: task.IsRecurring,
		ExecuteAt: task.Schedule,
	}
	if task.CronExpression != nil {
		job.CronExpression = *task.CronExpression
	}
	return s.scheduler.AddJob(job)
}
