// Package store provides the durable job store for tasks and executions.
// It persists Task and Execution rows in MySQL via gorm and exposes
// repository interfaces so the scheduling and execution core never touches
// gorm directly. Every mutation is committed on its own so a crash mid-run
// leaves rows in the last committed state.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus is the lifecycle status of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusPaused    TaskStatus = "paused"
)

// ExecutionStatus is the status of a single run attempt.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// TaskType categorizes a task and selects its default tool subset.
type TaskType string

const (
	TaskTypeResearch TaskType = "research_task"
	TaskTypeAnalysis TaskType = "analysis_task"
	TaskTypeReport   TaskType = "report_task"
)

// JSONMap is an opaque key/value payload stored as a JSON column.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}

	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// Task is a user-defined unit of scheduled work. For a recurring task,
// Schedule holds the next computed fire time; CronExpression is set iff
// IsRecurring is true.
type Task struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	Description    string     `gorm:"type:text;not null" json:"description"`
	TaskType       TaskType   `gorm:"size:50;not null" json:"task_type"`
	Schedule       time.Time  `gorm:"not null" json:"schedule"`
	CronExpression *string    `gorm:"size:100" json:"cron_expression,omitempty"`
	IsRecurring    bool       `gorm:"not null;default:false" json:"is_recurring"`
	Status         TaskStatus `gorm:"size:20;not null;default:pending" json:"status"`
	Params         JSONMap    `gorm:"type:json" json:"params,omitempty"`
	CreatedTime    time.Time  `gorm:"not null" json:"created_time"`
	UpdatedTime    time.Time  `gorm:"not null" json:"updated_time"`
	DeletedTime    *time.Time `json:"deleted_time,omitempty"`
}

// TableName sets the table name for gorm.
func (Task) TableName() string {
	return "tasks"
}

// IsDeleted reports whether the task is soft-deleted.
func (t *Task) IsDeleted() bool {
	return t.DeletedTime != nil
}

// Execution records one run attempt of a task. It is created with status
// running when a fired job begins and mutated exactly once to a terminal
// status; rows are never deleted.
type Execution struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	TaskID          string          `gorm:"size:36;not null;index" json:"task_id"`
	Status          ExecutionStatus `gorm:"size:20;not null" json:"status"`
	Result          *string         `gorm:"type:text" json:"result,omitempty"`
	ErrorMessage    *string         `gorm:"type:text" json:"error_message,omitempty"`
	ExecutionTime   time.Time       `gorm:"not null" json:"execution_time"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty"`
	CreatedTime     time.Time       `gorm:"not null" json:"created_time"`
}

// TableName sets the table name for gorm.
func (Execution) TableName() string {
	return "task_executions"
}

// ExecutionResult is the structured success payload stored in
// Execution.Result as JSON.
type ExecutionResult struct {
	TaskType      TaskType `json:"task_type"`
	FinalResponse string   `json:"final_response"`
	StepCount     int      `json:"step_count"`
}
