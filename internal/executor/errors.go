package executor

import "errors"

var (
	// ErrAlreadyRunning is returned when a task fires while a previous run of
	// the same task is still in flight. No execution row is written for the
	// rejected firing.
	ErrAlreadyRunning = errors.New("task is already running")

	// ErrTaskNotRunnable is returned when a firing reaches a task whose
	// status is not pending, such as a failed recurring task whose cron entry
	// is still armed. A failed or paused task runs again only after an
	// operator resumes it. No execution row is written for the rejected
	// firing.
	ErrTaskNotRunnable = errors.New("task is not runnable")

	// ErrTaskExecution wraps any failure inside a run, after the failure has
	// been persisted to the execution and task rows.
	ErrTaskExecution = errors.New("task execution failed")
)
