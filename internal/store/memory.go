package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTaskRepository is an in-memory TaskRepository used by tests and
// dry runs. It mirrors the commit-per-mutation semantics of the MySQL
// implementation.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewMemoryTaskRepository creates an empty in-memory task repository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]*Task),
	}
}

func (r *MemoryTaskRepository) Create(_ context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedTime.IsZero() {
		task.CreatedTime = now
	}
	task.UpdatedTime = now

	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *MemoryTaskRepository) GetByID(_ context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok || task.IsDeleted() {
		return nil, ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (r *MemoryTaskRepository) List(_ context.Context, filter TaskFilter) ([]*Task, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Task
	for _, task := range r.tasks {
		if task.IsDeleted() {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.TaskType != "" && task.TaskType != filter.TaskType {
			continue
		}
		clone := *task
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedTime.After(matched[j].CreatedTime)
	})

	total := int64(len(matched))
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[task.ID]
	if !ok || existing.IsDeleted() {
		return ErrTaskNotFound
	}

	task.CreatedTime = existing.CreatedTime
	task.UpdatedTime = time.Now().UTC()
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *MemoryTaskRepository) UpdateStatus(_ context.Context, id string, status TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.IsDeleted() {
		return ErrTaskNotFound
	}
	task.Status = status
	task.UpdatedTime = time.Now().UTC()
	return nil
}

func (r *MemoryTaskRepository) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.IsDeleted() {
		return ErrTaskNotFound
	}
	now := time.Now().UTC()
	task.DeletedTime = &now
	task.Status = TaskStatusPaused
	task.UpdatedTime = now
	return nil
}

func (r *MemoryTaskRepository) ListPending(_ context.Context) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*Task
	for _, task := range r.tasks {
		if task.IsDeleted() || task.Status != TaskStatusPending {
			continue
		}
		clone := *task
		pending = append(pending, &clone)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Schedule.Before(pending[j].Schedule)
	})
	return pending, nil
}

// MemoryExecutionRepository is an in-memory ExecutionRepository used by
// tests and dry runs.
type MemoryExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string]*Execution
}

// NewMemoryExecutionRepository creates an empty in-memory execution repository.
func NewMemoryExecutionRepository() *MemoryExecutionRepository {
	return &MemoryExecutionRepository{
		executions: make(map[string]*Execution),
	}
}

func (r *MemoryExecutionRepository) Create(_ context.Context, execution *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}
	if execution.CreatedTime.IsZero() {
		execution.CreatedTime = time.Now().UTC()
	}

	clone := *execution
	r.executions[execution.ID] = &clone
	return nil
}

func (r *MemoryExecutionRepository) GetByID(_ context.Context, id string) (*Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	clone := *execution
	return &clone, nil
}

func (r *MemoryExecutionRepository) Update(_ context.Context, execution *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.executions[execution.ID]
	if !ok {
		return ErrExecutionNotFound
	}

	existing.Status = execution.Status
	existing.Result = execution.Result
	existing.ErrorMessage = execution.ErrorMessage
	existing.DurationSeconds = execution.DurationSeconds
	return nil
}

func (r *MemoryExecutionRepository) List(_ context.Context, filter ExecutionFilter) ([]*Execution, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Execution
	for _, execution := range r.executions {
		if filter.TaskID != "" && execution.TaskID != filter.TaskID {
			continue
		}
		if filter.Status != "" && execution.Status != filter.Status {
			continue
		}
		clone := *execution
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ExecutionTime.After(matched[j].ExecutionTime)
	})

	total := int64(len(matched))
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *MemoryExecutionRepository) MarkAbandoned(_ context.Context, cutoff time.Time, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, execution := range r.executions {
		if execution.Status != ExecutionStatusRunning {
			continue
		}
		if !execution.ExecutionTime.Before(cutoff) {
			continue
		}
		execution.Status = ExecutionStatusFailed
		msg := strings.TrimSpace(reason)
		execution.ErrorMessage = &msg
		count++
	}
	return count, nil
}
