package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/parser"
	"github.com/timeros/timeros/internal/scheduler"
	"github.com/timeros/timeros/internal/service"
	"github.com/timeros/timeros/internal/store"
)

// TaskHandler serves the /api/tasks routes.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *logger.Logger
}

// NewTaskHandler creates a task handler.
func NewTaskHandler(tasks *service.TaskService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: log}
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Description string `json:"description" binding:"required"`
}

// CreateTask creates a task from a natural-language description.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetTask returns one task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListTasks returns a paginated task listing.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter := store.TaskFilter{
		Status:   store.TaskStatus(c.Query("status")),
		TaskType: store.TaskType(c.Query("task_type")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	tasks, total, err := h.tasks.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": total,
	})
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask soft-deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PauseTask stops a task from firing.
func (h *TaskHandler) PauseTask(c *gin.Context) {
	if err := h.tasks.Pause(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

// ResumeTask re-arms a paused task.
func (h *TaskHandler) ResumeTask(c *gin.Context) {
	if err := h.tasks.Resume(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pending"})
}

// TriggerTask starts a run immediately. The run itself is asynchronous.
func (h *TaskHandler) TriggerTask(c *gin.Context) {
	if err := h.tasks.TriggerNow(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}

// writeError maps domain errors onto HTTP status codes.
func (h *TaskHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, parser.ErrParse),
		errors.Is(err, scheduler.ErrInvalidCron),
		errors.Is(err, scheduler.ErrScheduling):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", err,
			logger.Field{Key: "path", Value: c.Request.URL.Path})
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return value
}
