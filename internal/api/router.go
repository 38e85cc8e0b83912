// Package api exposes the HTTP interface: task and execution management,
// health, and Prometheus metrics.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/service"
)

// Router wires handlers onto a gin engine.
type Router struct {
	taskHandler      *TaskHandler
	executionHandler *ExecutionHandler
	corsOrigins      []string
	healthCheck      func() error
}

// Config holds router dependencies.
type Config struct {
	Tasks      *service.TaskService
	Executions *service.ExecutionService
	Logger     *logger.Logger

	// CORSOrigins restricts cross-origin access. Empty allows all origins.
	CORSOrigins []string

	// HealthCheck reports readiness (typically a database ping). Nil means
	// always healthy.
	HealthCheck func() error
}

// NewRouter creates an API router.
func NewRouter(cfg Config) *Router {
	return &Router{
		taskHandler:      NewTaskHandler(cfg.Tasks, cfg.Logger),
		executionHandler: NewExecutionHandler(cfg.Executions),
		corsOrigins:      cfg.CORSOrigins,
		healthCheck:      cfg.HealthCheck,
	}
}

// SetupRoutes builds the gin engine with all routes registered.
func (r *Router) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(r.corsOrigins) > 0 {
		corsConfig.AllowOrigins = r.corsOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	api := engine.Group("/api")
	{
		tasks := api.Group("/tasks")
		{
			tasks.POST("", r.taskHandler.CreateTask)
			tasks.GET("", r.taskHandler.ListTasks)
			tasks.GET("/:id", r.taskHandler.GetTask)
			tasks.PUT("/:id", r.taskHandler.UpdateTask)
			tasks.DELETE("/:id", r.taskHandler.DeleteTask)
			tasks.POST("/:id/pause", r.taskHandler.PauseTask)
			tasks.POST("/:id/resume", r.taskHandler.ResumeTask)
			tasks.POST("/:id/trigger", r.taskHandler.TriggerTask)
		}

		executions := api.Group("/executions")
		{
			executions.GET("", r.executionHandler.ListExecutions)
			executions.GET("/:id", r.executionHandler.GetExecution)
		}
	}

	engine.GET("/health", r.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}

func (r *Router) health(c *gin.Context) {
	if r.healthCheck != nil {
		if err := r.healthCheck(); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(200, gin.H{"status": "ok"})
}
