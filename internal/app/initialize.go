package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/timeros/timeros/internal/agent"
	"github.com/timeros/timeros/internal/api"
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

// abandonedRunReason is written into execution rows left in status=running by
// a previous process.
const abandonedRunReason = "abandoned: process restarted during execution"

// Initialize builds every component, recovers state left by a previous
// process, rebuilds the schedule, and starts the HTTP API.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("application already started")
	}
	a.ctx, a.cancel = context.WithCancel(ctx)

	// Storage
	storage, err := store.Open(store.Config{
		Host:                   a.config.Database.Host,
		Port:                   a.config.Database.Port,
		User:                   a.config.Database.User,
		Password:               a.config.Database.Password,
		Database:               a.config.Database.Database,
		MaxConnections:         a.config.Database.MaxConnections,
		MaxIdleConnections:     a.config.Database.MaxIdleConnections,
		ConnMaxLifetimeSeconds: a.config.Database.ConnMaxLifetimeSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.storage = storage

	a.metrics = metrics.InitPrometheusMetrics("timeros", nil)

	if err := a.recoverState(a.ctx); err != nil {
		return err
	}

	// LLM provider
	a.provider, err = a.buildProvider()
	if err != nil {
		return err
	}

	// Tools
	a.registry, err = tools.NewDefaultRegistry(a.config.Tools, a.logger)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}

	// Parser
	a.parser, err = parser.New(parser.Config{
		Provider:    a.provider,
		Logger:      a.logger,
		Metrics:     a.metrics,
		CacheSize:   a.config.Parser.CacheSize,
		Temperature: a.config.Parser.Temperature,
		MaxTokens:   a.config.Parser.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to build parser: %w", err)
	}

	// Executor
	agentCfg := a.config.Agent
	provider := a.provider
	log := a.logger
	a.executor, err = executor.New(executor.Config{
		Tasks:      storage.Tasks(),
		Executions: storage.Executions(),
		Registry:   a.registry,
		Logger:     a.logger,
		Metrics:    a.metrics,
		RunTimeout: time.Duration(agentCfg.TimeoutSeconds) * time.Second,
		NewRunner: func(registry *tools.Registry) (executor.AgentRunner, error) {
			return agent.NewRunner(agent.Config{
				Provider:    provider,
				Registry:    registry,
				Logger:      log,
				Model:       agentCfg.Model,
				MaxTokens:   agentCfg.MaxTokens,
				Temperature: agentCfg.Temperature,
				MaxSteps:    agentCfg.MaxSteps,
			})
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build executor: %w", err)
	}

	// Scheduler, firing into the executor
	exec := a.executor
	a.scheduler, err = scheduler.New(scheduler.Config{
		Logger:  a.logger,
		Metrics: a.metrics,
		Fire: func(ctx context.Context, taskID string) {
			if err := exec.Run(ctx, taskID); err != nil {
				log.Error("Scheduled run failed", err,
					logger.Field{Key: "task_id", Value: taskID})
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}
	if err := a.scheduler.Start(a.ctx); err != nil {
		return err
	}
	if err := a.scheduler.LoadPending(a.ctx, storage.Tasks()); err != nil {
		return err
	}

	// Services and HTTP API
	a.taskService = service.NewTaskService(storage.Tasks(), a.parser, a.scheduler, a.executor, a.logger)
	a.executionService = service.NewExecutionService(storage.Executions())

	router := api.NewRouter(api.Config{
		Tasks:       a.taskService,
		Executions:  a.executionService,
		Logger:      a.logger,
		CORSOrigins: a.config.API.CORSOrigins,
		HealthCheck: storage.Ping,
	})
	a.httpServer = &http.Server{
		Addr:              a.config.API.ListenAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
		}
	}()

	a.started = true
	return nil
}

// recoverState closes out records a crashed process left behind: executions
// stuck in running become failed, and their tasks go back to a terminal
// state so the history stays truthful.
func (a *App) recoverState(ctx context.Context) error {
	count, err := a.storage.Executions().MarkAbandoned(ctx, time.Now().UTC(), abandonedRunReason)
	if err != nil {
		return fmt.Errorf("failed to recover abandoned executions: %w", err)
	}
	if count > 0 {
		a.logger.Warn("Recovered abandoned executions",
			logger.Field{Key: "count", Value: count})
	}

	running, _, err := a.storage.Tasks().List(ctx, store.TaskFilter{Status: store.TaskStatusRunning})
	if err != nil {
		return fmt.Errorf("failed to list running tasks: %w", err)
	}
	for _, task := range running {
		if err := a.storage.Tasks().UpdateStatus(ctx, task.ID, store.TaskStatusFailed); err != nil {
			a.logger.Error("Failed to fail stale running task", err,
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}
	return nil
}

func (a *App) buildProvider() (llm.Provider, error) {
	switch a.config.LLM.Provider {
	case "mock":
		return llm.NewEchoProvider(), nil
	case "openai", "":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:         a.config.LLM.OpenAI.APIKey,
			BaseURL:        a.config.LLM.OpenAI.BaseURL,
			Model:          a.config.LLM.OpenAI.Model,
			TimeoutSeconds: a.config.LLM.OpenAI.TimeoutSeconds,
		}, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", a.config.LLM.Provider)
	}
}
