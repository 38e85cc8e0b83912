// Package agent implements the bounded decision loop that turns a task prompt
// into a final answer, dispatching tool calls requested by the model along
// the way.
package agent

import (
	stdcontext "context"
	"fmt"
	"time"

	"github.com/timeros/timeros/internal/llm"
	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/tools"
)

const defaultMaxSteps = 15

// Config holds configuration for the runner.
type Config struct {
	Provider    llm.Provider
	Registry    *tools.Registry
	Logger      *logger.Logger
	Model       string
	MaxTokens   int
	Temperature float64

	// MaxSteps bounds the number of model calls per run. When the budget is
	// spent without a final answer the run fails with ErrStepBudgetExceeded.
	MaxSteps int

	// ToolTimeout bounds a single tool invocation. Zero means the registry
	// default.
	ToolTimeout time.Duration

	// Observer receives run events. Optional.
	Observer Observer

	// Now supplies the wall clock for the system preamble. Defaults to
	// time.Now, overridable in tests.
	Now func() time.Time
}

// Result is the outcome of a successful run.
type Result struct {
	FinalResponse string // The model's final text answer
	StepCount     int    // Number of model calls made
}

// Runner drives the decision loop for one task at a time. It is safe for
// concurrent use; each Execute call keeps its own conversation state.
type Runner struct {
	provider llm.Provider
	registry *tools.Registry
	logger   *logger.Logger
	config   Config
	observer Observer
	now      func() time.Time
}

// NewRunner creates a new decision loop runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("LLM provider cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Runner{
		provider: cfg.Provider,
		registry: cfg.Registry,
		logger:   cfg.Logger,
		config:   cfg,
		observer: cfg.Observer,
		now:      cfg.Now,
	}, nil
}

// Execute runs the decision loop for the given prompt and returns the model's
// final answer. The conversation always starts with a fresh system preamble
// carrying the current wall-clock time, so recurring tasks never see a stale
// date.
func (r *Runner) Execute(ctx stdcontext.Context, prompt string) (*Result, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: r.systemPreamble()},
		{Role: llm.RoleUser, Content: prompt},
	}

	toolSchemas := r.registry.ToSchema()
	var llmTools []llm.ToolDefinition
	if r.provider.SupportsToolCalling() && len(toolSchemas) > 0 {
		llmTools = make([]llm.ToolDefinition, len(toolSchemas))
		for i, schema := range toolSchemas {
			llmTools[i] = llm.ToolDefinition{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters:  schema.Parameters,
			}
		}
	}

	execCfg := tools.DefaultExecutionConfig()
	if r.config.ToolTimeout > 0 {
		execCfg.Timeout = r.config.ToolTimeout
	}

	for step := 1; step <= r.config.MaxSteps; step++ {
		r.emit(Event{Type: EventStep, Step: step})

		resp, err := r.provider.Chat(ctx, llm.ChatRequest{
			Messages:    messages,
			Model:       r.config.Model,
			Temperature: r.config.Temperature,
			MaxTokens:   r.config.MaxTokens,
			Tools:       llmTools,
		})
		if err != nil {
			r.logger.ErrorCtx(ctx, "Model call failed", err,
				logger.Field{Key: "step", Value: step})
			r.emit(Event{Type: EventError, Step: step, Error: err.Error()})
			return nil, err
		}

		r.logger.DebugCtx(ctx, "Model response received",
			logger.Field{Key: "step", Value: step},
			logger.Field{Key: "finish_reason", Value: resp.FinishReason},
			logger.Field{Key: "tool_calls_count", Value: len(resp.ToolCalls)},
			logger.Field{Key: "content_length", Value: len(resp.Content)})

		if resp.FinishReason != llm.FinishReasonToolCalls || len(resp.ToolCalls) == 0 {
			r.emit(Event{Type: EventFinal, Step: step, Content: resp.Content})
			return &Result{
				FinalResponse: resp.Content,
				StepCount:     step,
			}, nil
		}

		// Record the assistant turn, then every tool result in request order.
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			r.emit(Event{Type: EventToolCall, Step: step, ToolName: tc.Name, ToolArgs: tc.Arguments})

			result, err := r.registry.Dispatch(ctx, tools.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			}, execCfg)
			if err != nil {
				r.logger.ErrorCtx(ctx, "Tool dispatch aborted the run", err,
					logger.Field{Key: "step", Value: step},
					logger.Field{Key: "tool", Value: tc.Name})
				r.emit(Event{Type: EventError, Step: step, ToolName: tc.Name, Error: err.Error()})
				return nil, err
			}

			content := result.Content
			if result.Error != "" {
				content = fmt.Sprintf("Error: %s", result.Error)
			}
			r.emit(Event{Type: EventToolResult, Step: step, ToolName: tc.Name, Content: content})

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    content,
				ToolCallID: tc.ID,
			})
		}
	}

	r.logger.ErrorCtx(ctx, "Step budget exhausted without a final answer", nil,
		logger.Field{Key: "max_steps", Value: r.config.MaxSteps})
	r.emit(Event{Type: EventError, Step: r.config.MaxSteps, Error: ErrStepBudgetExceeded.Error()})
	return nil, fmt.Errorf("%w: %d steps", ErrStepBudgetExceeded, r.config.MaxSteps)
}

// systemPreamble is rebuilt per run so the model always sees the real current
// time.
func (r *Runner) systemPreamble() string {
	now := r.now()
	return fmt.Sprintf(
		"You are a task execution agent. You complete scheduled tasks using the tools available to you.\n"+
			"Current time: %s (%s).\n"+
			"Work step by step. Call tools when you need external data or side effects. "+
			"When the task is complete, reply with a final summary of what was done.",
		now.Format(time.RFC3339), now.Format("Monday, 02 January 2006"))
}
