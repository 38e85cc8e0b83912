package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timeros/timeros/internal/logger"
)

func openaiTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{
		Level:  "error",
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func TestOpenAIProvider_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization header = %q, want Bearer test-key", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}

		resp := openaiResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openaiChoice{
				{
					Index: 0,
					Message: openaiMessage{
						Role:    "assistant",
						Content: "Test response",
					},
					FinishReason: "stop",
				},
			},
			Usage: openaiUsage{
				PromptTokens:     10,
				CompletionTokens: 5,
				TotalTokens:      15,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, openaiTestLogger(t))

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "Hello"},
		},
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   100,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.Content != "Test response" {
		t.Errorf("Content = %q, want Test response", resp.Content)
	}
	if resp.FinishReason != FinishReasonStop {
		t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProvider_Chat_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var apiReq openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&apiReq); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if len(apiReq.Tools) != 1 {
			t.Errorf("Tools = %d, want 1", len(apiReq.Tools))
		}
		if apiReq.ToolChoice != "auto" {
			t.Errorf("ToolChoice = %q, want auto", apiReq.ToolChoice)
		}

		call := openaiToolCall{ID: "call_1", Type: "function"}
		call.Function.Name = "web_search"
		call.Function.Arguments = `{"query":"golang"}`

		resp := openaiResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openaiChoice{
				{
					Message: openaiMessage{
						Role:      "assistant",
						ToolCalls: []openaiToolCall{call},
					},
					FinishReason: "tool_calls",
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, openaiTestLogger(t))

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "Search for golang"},
		},
		Tools: []ToolDefinition{
			{
				Name:        "web_search",
				Description: "Search the web",
				Parameters:  map[string]interface{}{"type": "object"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.FinishReason != FinishReasonToolCalls {
		t.Errorf("FinishReason = %q, want tool_calls", resp.FinishReason)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Name != "web_search" {
		t.Errorf("Tool name = %q, want web_search", resp.ToolCalls[0].Name)
	}
	if resp.ToolCalls[0].Arguments != `{"query":"golang"}` {
		t.Errorf("Tool arguments = %q", resp.ToolCalls[0].Arguments)
	}
}

func TestOpenAIProvider_Chat_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		if _, err := w.Write([]byte(`{"error":{"message":"bad key"}}`)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "bad-key", BaseURL: server.URL}, openaiTestLogger(t))

	_, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	})
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
	if !errors.Is(err, ErrModelCall) {
		t.Errorf("Expected ErrModelCall, got %v", err)
	}
}

func TestOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "key"}, openaiTestLogger(t))

	if p.GetDefaultModel() != OpenAIDefaultModel {
		t.Errorf("Default model = %q, want %q", p.GetDefaultModel(), OpenAIDefaultModel)
	}
	if p.apiURL != OpenAIDefaultBaseURL+"/chat/completions" {
		t.Errorf("API URL = %q", p.apiURL)
	}
	if !p.SupportsToolCalling() {
		t.Error("Expected tool calling support")
	}
}

func TestOpenAIProvider_MapChatRequest_ToolMessages(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "key", Model: "gpt-4o-mini"}, openaiTestLogger(t))

	apiReq := p.mapChatRequest(ChatRequest{
		Messages: []Message{
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "lookup", Arguments: "{}"}}},
			{Role: RoleTool, Content: "result", ToolCallID: "c1"},
		},
	})

	if apiReq.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want configured default", apiReq.Model)
	}
	if len(apiReq.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2", len(apiReq.Messages))
	}
	if len(apiReq.Messages[0].ToolCalls) != 1 || apiReq.Messages[0].ToolCalls[0].Function.Name != "lookup" {
		t.Errorf("Assistant tool calls not mapped: %+v", apiReq.Messages[0])
	}
	if apiReq.Messages[1].ToolCallID != "c1" {
		t.Errorf("ToolCallID = %q, want c1", apiReq.Messages[1].ToolCallID)
	}
}
