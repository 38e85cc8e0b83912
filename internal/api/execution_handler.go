package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timeros/timeros/internal/service"
	"github.com/timeros/timeros/internal/store"
)

// ExecutionHandler serves the /api/executions routes.
type ExecutionHandler struct {
	executions *service.ExecutionService
}

// NewExecutionHandler creates an execution handler.
func NewExecutionHandler(executions *service.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executions: executions}
}

// GetExecution returns one execution record.
func (h *ExecutionHandler) GetExecution(c *gin.Context) {
	execution, err := h.executions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrExecutionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, execution)
}

// ListExecutions returns a paginated execution history, filterable by task
// and status.
func (h *ExecutionHandler) ListExecutions(c *gin.Context) {
	filter := store.ExecutionFilter{
		TaskID:   c.Query("task_id"),
		Status:   store.ExecutionStatus(c.Query("status")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	executions, total, err := h.executions.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"executions": executions,
		"total":      total,
	})
}
