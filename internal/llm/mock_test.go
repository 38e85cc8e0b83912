package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func userRequest(content string) ChatRequest {
	return ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: content},
		},
	}
}

func TestMockProvider_Echo(t *testing.T) {
	provider := NewEchoProvider()

	resp, err := provider.Chat(context.Background(), userRequest("hello"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "Echo: hello" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != FinishReasonStop {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
}

func TestMockProvider_Fixed(t *testing.T) {
	provider := NewFixedProvider("always this")

	for i := 0; i < 3; i++ {
		resp, err := provider.Chat(context.Background(), userRequest("whatever"))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if resp.Content != "always this" {
			t.Errorf("Content = %q", resp.Content)
		}
	}
	if provider.GetCallCount() != 3 {
		t.Errorf("CallCount = %d, want 3", provider.GetCallCount())
	}
}

func TestMockProvider_FixturesRotate(t *testing.T) {
	provider := NewFixturesProvider([]string{"one", "two"})

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := provider.Chat(context.Background(), userRequest("x"))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		got = append(got, resp.Content)
	}

	want := []string{"one", "two", "one"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Response %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMockProvider_Scripted(t *testing.T) {
	provider := NewScriptedProvider(
		&ChatResponse{
			FinishReason: FinishReasonToolCalls,
			ToolCalls: []ToolCall{
				{ID: "c1", Name: "web_search", Arguments: `{"query":"go"}`},
			},
		},
		&ChatResponse{Content: "done", FinishReason: FinishReasonStop},
	)

	if !provider.SupportsToolCalling() {
		t.Error("Scripted provider should support tool calling")
	}

	first, err := provider.Chat(context.Background(), userRequest("search"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if first.FinishReason != FinishReasonToolCalls || len(first.ToolCalls) != 1 {
		t.Fatalf("First response = %+v", first)
	}
	if first.ToolCalls[0].Name != "web_search" {
		t.Errorf("Tool name = %q", first.ToolCalls[0].Name)
	}

	second, err := provider.Chat(context.Background(), userRequest("continue"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if second.Content != "done" {
		t.Errorf("Second content = %q", second.Content)
	}

	// The script is spent; further calls fail.
	_, err = provider.Chat(context.Background(), userRequest("again"))
	if !errors.Is(err, ErrModelCall) {
		t.Fatalf("Expected ErrModelCall after script exhaustion, got %v", err)
	}
	if !strings.Contains(err.Error(), "exhausted") {
		t.Errorf("Error = %v", err)
	}
}

func TestMockProvider_Error(t *testing.T) {
	provider := NewErrorProvider()

	_, err := provider.Chat(context.Background(), userRequest("x"))
	if !errors.Is(err, ErrModelCall) {
		t.Fatalf("Expected ErrModelCall, got %v", err)
	}
}

func TestMockProvider_ErrorAfter(t *testing.T) {
	provider := NewFixedProvider("ok")
	provider.SetErrorAfter(2)

	for i := 0; i < 2; i++ {
		if _, err := provider.Chat(context.Background(), userRequest("x")); err != nil {
			t.Fatalf("Call %d error = %v", i+1, err)
		}
	}

	_, err := provider.Chat(context.Background(), userRequest("x"))
	if !errors.Is(err, ErrModelCall) {
		t.Fatalf("Expected ErrModelCall on third call, got %v", err)
	}
}

func TestMockProvider_RecordsRequests(t *testing.T) {
	provider := NewEchoProvider()

	if _, err := provider.Chat(context.Background(), userRequest("first")); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if _, err := provider.Chat(context.Background(), userRequest("second")); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	requests := provider.Requests()
	if len(requests) != 2 {
		t.Fatalf("Requests = %d, want 2", len(requests))
	}
	if requests[1].Messages[0].Content != "second" {
		t.Errorf("Second request content = %q", requests[1].Messages[0].Content)
	}
}
