package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedTask(t *testing.T, repo *MemoryTaskRepository, name string, status TaskStatus) *Task {
	t.Helper()
	task := &Task{
		Name:     name,
		TaskType: TaskTypeResearch,
		Status:   status,
		Schedule: time.Now().UTC().Add(time.Hour),
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return task
}

func TestMemoryTaskRepository_CreateAssignsID(t *testing.T) {
	repo := NewMemoryTaskRepository()
	task := seedTask(t, repo, "t", TaskStatusPending)

	if task.ID == "" {
		t.Fatal("Expected generated id")
	}
	if task.CreatedTime.IsZero() || task.UpdatedTime.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	got, err := repo.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "t" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestMemoryTaskRepository_GetByID_NotFound(t *testing.T) {
	repo := NewMemoryTaskRepository()

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemoryTaskRepository_SoftDeleteHidesTask(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := context.Background()
	task := seedTask(t, repo, "t", TaskStatusPending)

	if err := repo.SoftDelete(ctx, task.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	if _, err := repo.GetByID(ctx, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound after delete, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, task.ID, TaskStatusPending); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound on update after delete, got %v", err)
	}

	_, total, err := repo.List(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 0 {
		t.Errorf("Total = %d, want 0", total)
	}
}

func TestMemoryTaskRepository_ListFilters(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := context.Background()
	seedTask(t, repo, "a", TaskStatusPending)
	seedTask(t, repo, "b", TaskStatusFailed)
	seedTask(t, repo, "c", TaskStatusPending)

	pending, total, err := repo.List(ctx, TaskFilter{Status: TaskStatusPending})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(pending) != 2 {
		t.Errorf("Pending = %d (total %d), want 2", len(pending), total)
	}

	paged, total, err := repo.List(ctx, TaskFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("Total = %d, want 3", total)
	}
	if len(paged) != 2 {
		t.Errorf("Page size = %d, want 2", len(paged))
	}
}

func TestMemoryTaskRepository_ListPending(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := context.Background()
	seedTask(t, repo, "pending", TaskStatusPending)
	seedTask(t, repo, "done", TaskStatusCompleted)
	deleted := seedTask(t, repo, "deleted", TaskStatusPending)
	if err := repo.SoftDelete(ctx, deleted.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	pending, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "pending" {
		t.Errorf("Pending = %+v", pending)
	}
}

func TestMemoryTaskRepository_CloneOnRead(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := context.Background()
	task := seedTask(t, repo, "t", TaskStatusPending)

	got, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	got.Name = "mutated"

	again, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if again.Name != "t" {
		t.Errorf("Stored task was mutated through a read: %q", again.Name)
	}
}

func TestMemoryExecutionRepository_MarkAbandoned(t *testing.T) {
	repo := NewMemoryExecutionRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	stale := &Execution{TaskID: "t1", Status: ExecutionStatusRunning, ExecutionTime: now.Add(-time.Hour)}
	fresh := &Execution{TaskID: "t2", Status: ExecutionStatusRunning, ExecutionTime: now.Add(time.Minute)}
	done := &Execution{TaskID: "t3", Status: ExecutionStatusCompleted, ExecutionTime: now.Add(-time.Hour)}
	for _, e := range []*Execution{stale, fresh, done} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	count, err := repo.MarkAbandoned(ctx, now, "abandoned: process restarted")
	if err != nil {
		t.Fatalf("MarkAbandoned() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}

	got, err := repo.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != ExecutionStatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "abandoned: process restarted" {
		t.Errorf("ErrorMessage = %v", got.ErrorMessage)
	}

	untouched, err := repo.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if untouched.Status != ExecutionStatusCompleted {
		t.Errorf("Completed execution was modified: %q", untouched.Status)
	}
}

func TestMemoryExecutionRepository_ListByTask(t *testing.T) {
	repo := NewMemoryExecutionRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, taskID := range []string{"t1", "t1", "t2"} {
		e := &Execution{
			TaskID:        taskID,
			Status:        ExecutionStatusCompleted,
			ExecutionTime: now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	executions, total, err := repo.List(ctx, ExecutionFilter{TaskID: "t1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(executions) != 2 {
		t.Errorf("Executions = %d (total %d), want 2", len(executions), total)
	}

	// Newest first.
	if executions[0].ExecutionTime.Before(executions[1].ExecutionTime) {
		t.Error("Expected newest execution first")
	}
}
