package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

func (r *taskRepository) Create(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if task.CreatedTime.IsZero() {
		task.CreatedTime = now
	}
	task.UpdatedTime = now

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_time IS NULL", id).
		First(&task).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]*Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&Task{}).Where("deleted_time IS NULL")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TaskType != "" {
		query = query.Where("task_type = ?", filter.TaskType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var tasks []*Task
	err := query.
		Order("created_time DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *Task) error {
	task.UpdatedTime = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND deleted_time IS NULL", task.ID).
		Select("name", "description", "task_type", "schedule", "cron_expression",
			"is_recurring", "status", "params", "updated_time").
		Updates(task)

	if result.Error != nil {
		return fmt.Errorf("failed to update task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id string, status TaskStatus) error {
	result := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND deleted_time IS NULL", id).
		Updates(map[string]any{
			"status":       status,
			"updated_time": time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update task status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND deleted_time IS NULL", id).
		Updates(map[string]any{
			"deleted_time": now,
			"status":       TaskStatusPaused,
			"updated_time": now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) ListPending(ctx context.Context) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).
		Where("status = ? AND deleted_time IS NULL", TaskStatusPending).
		Order("schedule ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}
	return tasks, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
