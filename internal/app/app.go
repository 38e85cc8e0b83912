// Package app assembles the application: storage, LLM provider, tools,
// scheduler, executor, services, and the HTTP API, and manages their
// lifecycle.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/timeros/timeros/internal/config"
	"github.com/timeros/timeros/internal/executor"
	"github.com/timeros/timeros/internal/llm"
	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/metrics"
	"github.com/timeros/timeros/internal/parser"
	"github.com/timeros/timeros/internal/scheduler"
	"github.com/timeros/timeros/internal/service"
	"github.com/timeros/timeros/internal/store"
	"github.com/timeros/timeros/internal/tools"
)

// App holds all application components and manages their lifecycle.
type App struct {
	config *config.Config
	logger *logger.Logger

	storage  *store.Storage
	metrics  *metrics.PrometheusMetrics
	registry *tools.Registry
	provider llm.Provider

	parser    *parser.Parser
	executor  *executor.Executor
	scheduler *scheduler.Scheduler

	taskService      *service.TaskService
	executionService *service.ExecutionService

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New creates an App. Components are built in Initialize.
func New(cfg *config.Config, log *logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

// Run initializes all components and blocks until the context is cancelled,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	a.logger.Info("TimerOS is running",
		logger.Field{Key: "listen_addr", Value: a.config.API.ListenAddr})

	<-ctx.Done()
	return a.Shutdown()
}

// TaskService exposes the task service, for tests and embedding.
func (a *App) TaskService() *service.TaskService {
	return a.taskService
}

// ExecutionService exposes the execution service.
func (a *App) ExecutionService() *service.ExecutionService {
	return a.executionService
}
