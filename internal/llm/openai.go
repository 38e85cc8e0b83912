package llm

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/retry"
)

const (
	// OpenAIDefaultBaseURL is the base URL for the OpenAI chat completions API
	OpenAIDefaultBaseURL = "https://api.openai.com/v1"
	// OpenAIDefaultModel is used when no model is configured
	OpenAIDefaultModel = "gpt-4o-mini"
	// OpenAIRequestTimeout is the default timeout for API requests
	OpenAIRequestTimeout = 60 * time.Second
)

// OpenAIConfig contains configuration for the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`         // API key for authentication
	BaseURL        string `json:"base_url"`        // API base URL (optional, defaults to api.openai.com)
	Model          string `json:"model"`           // Default model to use
	TimeoutSeconds int    `json:"timeout_seconds"` // Timeout for HTTP requests in seconds
}

// OpenAIProvider implements the Provider interface for the OpenAI chat
// completions API and compatible endpoints.
type OpenAIProvider struct {
	client *http.Client // HTTP client for API requests
	config OpenAIConfig // Provider configuration
	apiURL string       // Resolved chat completions endpoint URL
	logger *logger.Logger
}

// openaiRequest represents the request format for the chat completions API.
type openaiRequest struct {
	Messages    []openaiMessage `json:"messages"`              // Conversation messages
	Model       string          `json:"model"`                 // Model identifier
	Temperature float64         `json:"temperature,omitempty"` // Sampling temperature
	MaxTokens   int             `json:"max_tokens,omitempty"`  // Maximum tokens to generate
	Tools       []openaiTool    `json:"tools,omitempty"`       // Available tools/functions
	ToolChoice  string          `json:"tool_choice,omitempty"` // Tool selection mode (auto)
}

// openaiMessage represents a message in the chat completions API format.
type openaiMessage struct {
	Role       string           `json:"role"`                   // Role of the message sender
	Content    string           `json:"content"`                // Message content
	ToolCallID string           `json:"tool_call_id,omitempty"` // Tool call ID for role=tool messages
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`   // Tool calls requested
}

// openaiTool represents a tool definition in the chat completions API format.
type openaiTool struct {
	Type     string                 `json:"type"`     // Always "function"
	Function map[string]interface{} `json:"function"` // Function definition
}

// openaiResponse represents the response format from the chat completions API.
type openaiResponse struct {
	ID      string          `json:"id"`              // Response identifier
	Object  string          `json:"object"`          // Response object type
	Created int64           `json:"created"`         // Unix timestamp
	Model   string          `json:"model"`           // Model used
	Choices []openaiChoice  `json:"choices"`         // Response choices
	Usage   openaiUsage     `json:"usage"`           // Token usage
	Error   *openaiAPIError `json:"error,omitempty"` // API error if present
}

// openaiChoice represents a choice in the response.
type openaiChoice struct {
	Index        int           `json:"index"`                   // Choice index
	Message      openaiMessage `json:"message"`                 // The generated message
	FinishReason string        `json:"finish_reason,omitempty"` // Reason generation stopped
}

// openaiToolCall represents a tool call in the response.
type openaiToolCall struct {
	ID       string `json:"id"`              // Tool call identifier
	Type     string `json:"type"`            // Always "function"
	Index    int    `json:"index,omitempty"` // Tool call index
	Function struct {
		Name      string `json:"name"`      // Function name
		Arguments string `json:"arguments"` // Function arguments as JSON string
	} `json:"function"`
}

// openaiUsage represents token usage information.
type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`     // Tokens in prompt
	CompletionTokens int `json:"completion_tokens"` // Tokens in completion
	TotalTokens      int `json:"total_tokens"`      // Total tokens used
}

// openaiAPIError represents an error response from the API.
type openaiAPIError struct {
	Message string `json:"message"` // Error message
	Type    string `json:"type"`    // Error type
	Code    any    `json:"code"`    // Error code (string or number depending on endpoint)
}

// NewOpenAIProvider creates a new OpenAIProvider instance.
func NewOpenAIProvider(cfg OpenAIConfig, log *logger.Logger) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = OpenAIDefaultModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = OpenAIDefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = OpenAIRequestTimeout
	}

	return &OpenAIProvider{
		client: &http.Client{
			Timeout: timeout,
		},
		config: cfg,
		apiURL: baseURL + "/chat/completions",
		logger: log,
	}
}

// openaiHTTPError represents an HTTP error from the API.
type openaiHTTPError struct {
	StatusCode int    // HTTP status code
	Body       string // Response body
}

func (e *openaiHTTPError) Error() string {
	return fmt.Sprintf("HTTP error: status=%d, body=%s", e.StatusCode, e.Body)
}

// doRequest executes a single HTTP request to the chat completions endpoint.
func (p *OpenAIProvider) doRequest(ctx stdcontext.Context, reqBody []byte) (*openaiResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.config.APIKey))

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.ErrorCtx(ctx, "Failed to execute request to LLM API", err)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		p.logger.ErrorCtx(ctx, "Failed to read response body", err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.logger.ErrorCtx(ctx, "LLM API returned error status", nil,
			logger.Field{Key: "status_code", Value: httpResp.StatusCode},
			logger.Field{Key: "response_body", Value: string(respBody)})

		return nil, &openaiHTTPError{
			StatusCode: httpResp.StatusCode,
			Body:       string(respBody),
		}
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		p.logger.ErrorCtx(ctx, "Failed to unmarshal LLM response", err,
			logger.Field{Key: "response_body", Value: string(respBody)})
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		p.logger.ErrorCtx(ctx, "LLM API returned error", nil,
			logger.Field{Key: "error_type", Value: apiResp.Error.Type},
			logger.Field{Key: "error_message", Value: apiResp.Error.Message})
		return nil, fmt.Errorf("API error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	return &apiResp, nil
}

// mapChatRequest maps internal ChatRequest to the chat completions API format.
func (p *OpenAIProvider) mapChatRequest(req ChatRequest) openaiRequest {
	messages := make([]openaiMessage, len(req.Messages))
	for i, msg := range req.Messages {
		mapped := openaiMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			call := openaiToolCall{ID: tc.ID, Type: "function"}
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			mapped.ToolCalls = append(mapped.ToolCalls, call)
		}
		messages[i] = mapped
	}

	apiReq := openaiRequest{
		Messages:    messages,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if apiReq.Model == "" {
		apiReq.Model = p.config.Model
	}

	if len(req.Tools) > 0 {
		apiReq.Tools = make([]openaiTool, len(req.Tools))
		for i, tool := range req.Tools {
			apiReq.Tools[i] = openaiTool{
				Type: "function",
				Function: map[string]interface{}{
					"name":        tool.Name,
					"description": tool.Description,
					"parameters":  tool.Parameters,
				},
			}
		}
		apiReq.ToolChoice = "auto"
	}

	return apiReq
}

// mapChatResponse maps the chat completions API response to internal ChatResponse format.
func (p *OpenAIProvider) mapChatResponse(apiResp *openaiResponse) *ChatResponse {
	usage := Usage{
		PromptTokens:     apiResp.Usage.PromptTokens,
		CompletionTokens: apiResp.Usage.CompletionTokens,
		TotalTokens:      apiResp.Usage.TotalTokens,
	}

	if len(apiResp.Choices) == 0 {
		return &ChatResponse{
			Content:      "",
			FinishReason: FinishReasonError,
			ToolCalls:    []ToolCall{},
			Usage:        usage,
			Model:        apiResp.Model,
		}
	}

	choice := apiResp.Choices[0]

	toolCalls := make([]ToolCall, len(choice.Message.ToolCalls))
	for i, tc := range choice.Message.ToolCalls {
		toolCalls[i] = ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}

	p.logger.DebugCtx(stdcontext.Background(), "LLM response",
		logger.Field{Key: "model", Value: apiResp.Model},
		logger.Field{Key: "finish_reason", Value: choice.FinishReason},
		logger.Field{Key: "tool_calls_count", Value: len(toolCalls)},
		logger.Field{Key: "content_length", Value: len(choice.Message.Content)})

	return &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: FinishReason(choice.FinishReason),
		ToolCalls:    toolCalls,
		Usage:        usage,
		Model:        apiResp.Model,
	}
}

// Chat sends a chat completion request, retrying transient failures with
// exponential backoff. A final failure is wrapped in ErrModelCall.
func (p *OpenAIProvider) Chat(ctx stdcontext.Context, req ChatRequest) (*ChatResponse, error) {
	p.logger.DebugCtx(ctx, "Sending chat request to LLM API",
		logger.Field{Key: "model", Value: req.Model},
		logger.Field{Key: "messages_count", Value: len(req.Messages)})

	reqBody := p.mapChatRequest(req)
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		p.logger.ErrorCtx(ctx, "Failed to marshal request", err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiResp, err := retry.Do(ctx, retry.Config{}, p.logger, func() (*openaiResponse, error) {
		return p.doRequest(ctx, jsonBody)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelCall, err)
	}

	return p.mapChatResponse(apiResp), nil
}

// SupportsToolCalling returns true as the chat completions API supports tool calling.
func (p *OpenAIProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel implements the Provider interface.
func (p *OpenAIProvider) GetDefaultModel() string {
	return p.config.Model
}
