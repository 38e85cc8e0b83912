package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type executionRepository struct {
	db *gorm.DB
}

func (r *executionRepository) Create(ctx context.Context, execution *Execution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}
	if execution.CreatedTime.IsZero() {
		execution.CreatedTime = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(execution).Error; err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}
	return nil
}

func (r *executionRepository) GetByID(ctx context.Context, id string) (*Execution, error) {
	var execution Execution
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&execution).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query execution: %w", err)
	}
	return &execution, nil
}

func (r *executionRepository) Update(ctx context.Context, execution *Execution) error {
	result := r.db.WithContext(ctx).
		Model(&Execution{}).
		Where("id = ?", execution.ID).
		Select("status", "result", "error_message", "duration_seconds").
		Updates(execution)

	if result.Error != nil {
		return fmt.Errorf("failed to update execution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

func (r *executionRepository) List(ctx context.Context, filter ExecutionFilter) ([]*Execution, int64, error) {
	query := r.db.WithContext(ctx).Model(&Execution{})

	if filter.TaskID != "" {
		query = query.Where("task_id = ?", filter.TaskID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count executions: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var executions []*Execution
	err := query.
		Order("execution_time DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&executions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, total, nil
}

func (r *executionRepository) MarkAbandoned(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Execution{}).
		Where("status = ? AND execution_time < ?", ExecutionStatusRunning, cutoff).
		Updates(map[string]any{
			"status":        ExecutionStatusFailed,
			"error_message": reason,
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark abandoned executions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
