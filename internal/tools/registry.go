package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Tool defines the interface that all tools must implement.
// A tool represents a function that can be called by the LLM agent.
type Tool interface {
	// Name returns the unique name of the tool.
	// This name is used to identify the tool in the function calling API.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// This description helps the LLM understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON Schema object describing the tool's input parameters.
	// The schema follows OpenAI function calling format.
	Parameters() map[string]interface{}

	// Execute runs the tool with the provided arguments.
	// args is a JSON-encoded string containing the tool's input parameters.
	Execute(args string) (string, error)
}

// ContextualTool is an optional interface that tools can implement to receive
// execution context. If a tool implements this interface, ExecuteWithContext
// is called instead of Execute.
type ContextualTool interface {
	Tool

	// ExecuteWithContext runs the tool with the provided arguments and context.
	// The context can be used for cancellation, deadlines, and timeout handling.
	ExecuteWithContext(ctx context.Context, args string) (string, error)
}

// Registry manages the collection of available tools.
// It provides thread-safe operations for registering and retrieving tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name already exists, it will be replaced.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by its name.
// Returns the tool and true if found, nil and false otherwise.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})

	return tools
}

// Subset returns a new registry holding only the named tools.
// Unknown names are silently skipped.
func (r *Registry) Subset(names ...string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub := NewRegistry()
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			sub.tools[name] = tool
		}
	}
	return sub
}

// ToSchema converts the registered tools to OpenAI-compatible function
// definitions, sorted by name so requests are deterministic.
func (r *Registry) ToSchema() []ToolDefinition {
	tools := r.List()

	schemas := make([]ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		schemas = append(schemas, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}

	return schemas
}

// ToolDefinition represents a tool definition in OpenAI function calling format.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall represents a tool call request from the LLM.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Arguments is a JSON string containing the tool's input parameters.
	Arguments string `json:"arguments"`
}

// ToolResult represents the result of executing a tool.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	Error      string `json:"error,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

// ExecutionConfig represents the configuration for tool execution.
type ExecutionConfig struct {
	Timeout        time.Duration // Timeout for tool execution
	DefaultTimeout time.Duration // Default timeout if not specified
}

// DefaultExecutionConfig returns the default execution configuration.
func DefaultExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{
		DefaultTimeout: 30 * time.Second,
	}
}

// Dispatch executes a tool call against the registry.
//
// A call naming a tool the registry does not hold returns ErrToolNotFound;
// that is the caller's signal to abort the whole run. Every other failure
// (bad arguments, tool error, timeout) is reported inside the ToolResult so
// the model can see it and react.
func (r *Registry) Dispatch(ctx context.Context, tc ToolCall, cfg *ExecutionConfig) (ToolResult, error) {
	tool, ok := r.Get(tc.Name)
	if !ok {
		return ToolResult{ToolCallID: tc.ID}, fmt.Errorf("%w: %s", ErrToolNotFound, tc.Name)
	}

	if err := validateArguments(tool.Parameters(), tc.Arguments); err != nil {
		return ToolResult{
			ToolCallID: tc.ID,
			Error:      fmt.Sprintf("invalid arguments for %s: %v", tc.Name, err),
		}, nil
	}

	var timeout time.Duration
	if cfg != nil {
		timeout = cfg.Timeout
		if timeout == 0 && cfg.DefaultTimeout != 0 {
			timeout = cfg.DefaultTimeout
		}
	}

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type toolResult struct {
		result string
		err    error
	}
	resultChan := make(chan toolResult, 1)

	go func() {
		var res string
		var err error

		if contextualTool, ok := tool.(ContextualTool); ok {
			res, err = contextualTool.ExecuteWithContext(execCtx, tc.Arguments)
		} else {
			res, err = tool.Execute(tc.Arguments)
		}

		resultChan <- toolResult{result: res, err: err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return ToolResult{
				ToolCallID: tc.ID,
				Error:      res.err.Error(),
			}, nil
		}

		return ToolResult{
			ToolCallID: tc.ID,
			Content:    res.result,
		}, nil

	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return ToolResult{
				ToolCallID: tc.ID,
				Error:      fmt.Sprintf("tool execution timed out after %v", timeout),
				TimedOut:   true,
			}, nil
		}

		return ToolResult{
			ToolCallID: tc.ID,
			Error:      fmt.Sprintf("tool execution cancelled: %v", execCtx.Err()),
		}, nil
	}
}

// validateArguments checks a JSON argument string against the tool's schema:
// the payload must be a JSON object, every required key must be present, and
// declared primitive types must match. Nested schemas are not validated.
func validateArguments(schema map[string]interface{}, args string) error {
	if args == "" {
		args = "{}"
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}

	required, _ := schema["required"].([]string)
	if required == nil {
		if rawRequired, ok := schema["required"].([]interface{}); ok {
			for _, item := range rawRequired {
				if name, ok := item.(string); ok {
					required = append(required, name)
				}
			}
		}
	}
	for _, name := range required {
		if _, ok := parsed[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	properties, _ := schema["properties"].(map[string]interface{})
	for name, value := range parsed {
		propSchema, ok := properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		declared, ok := propSchema["type"].(string)
		if !ok {
			continue
		}
		if err := checkType(name, declared, value); err != nil {
			return err
		}
	}

	return nil
}

func checkType(name, declared string, value interface{}) error {
	if value == nil {
		return nil
	}

	ok := true
	switch declared {
	case "string":
		_, ok = value.(string)
	case "number":
		_, ok = value.(float64)
	case "integer":
		f, isFloat := value.(float64)
		ok = isFloat && f == float64(int64(f))
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]interface{})
	case "object":
		_, ok = value.(map[string]interface{})
	}
	if !ok {
		return fmt.Errorf("argument %q must be of type %s", name, declared)
	}
	return nil
}
