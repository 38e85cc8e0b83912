package service

import (
	"context"

	"github.com/timeros/timeros/internal/store"
)

// ExecutionService exposes read access to the execution history.
type ExecutionService struct {
	executions store.ExecutionRepository
}

// NewExecutionService creates an execution service.
func NewExecutionService(executions store.ExecutionRepository) *ExecutionService {
	return &ExecutionService{executions: executions}
}

// Get returns an execution by id.
func (s *ExecutionService) Get(ctx context.Context, id string) (*store.Execution, error) {
	return s.executions.GetByID(ctx, id)
}

// List returns executions matching the filter plus the total count.
func (s *ExecutionService) List(ctx context.Context, filter store.ExecutionFilter) ([]*store.Execution, int64, error) {
	return s.executions.List(ctx, filter)
}
