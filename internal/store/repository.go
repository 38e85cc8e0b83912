package store

import (
	"context"
	"errors"
	"time"
)

// ErrTaskNotFound is returned when a task id does not exist or the task is
// soft-deleted.
var ErrTaskNotFound = errors.New("task not found")

// ErrExecutionNotFound is returned when an execution id does not exist.
var ErrExecutionNotFound = errors.New("execution not found")

// TaskFilter narrows task listings. Zero values mean "no filter".
type TaskFilter struct {
	Status   TaskStatus
	TaskType TaskType
	Page     int
	PageSize int
}

// ExecutionFilter narrows execution listings. Zero values mean "no filter".
type ExecutionFilter struct {
	TaskID   string
	Status   ExecutionStatus
	Page     int
	PageSize int
}

// TaskRepository is the durable store for tasks. Soft-deleted tasks are
// invisible to every method except where noted.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*Task, int64, error)
	Update(ctx context.Context, task *Task) error

	// UpdateStatus commits a status transition on its own.
	UpdateStatus(ctx context.Context, id string, status TaskStatus) error

	// SoftDelete sets deleted_time and keeps the row for audit.
	SoftDelete(ctx context.Context, id string) error

	// ListPending returns all tasks with status=pending and no deleted_time,
	// used to rebuild the scheduler after a restart.
	ListPending(ctx context.Context) ([]*Task, error)
}

// ExecutionRepository is the durable store for run attempts.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *Execution) error
	GetByID(ctx context.Context, id string) (*Execution, error)
	Update(ctx context.Context, execution *Execution) error
	List(ctx context.Context, filter ExecutionFilter) ([]*Execution, int64, error)

	// MarkAbandoned flips executions still in status=running that started
	// before the cutoff to failed with the given reason. It runs once at
	// startup so records from a crashed process never stay running forever.
	MarkAbandoned(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}
