package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockProvider is a mock implementation of the Provider interface for testing
// and offline runs.
type MockProvider struct {
	mu            sync.Mutex
	responses     []string        // Pre-defined text responses (rotates through them)
	scripted      []*ChatResponse // Pre-defined full responses, consumed in order
	responseIndex int             // Current index in responses
	scriptedIndex int             // Current index in scripted responses
	mode          MockMode        // Mode of operation
	delay         int             // Simulated delay in milliseconds
	errorAfter    int             // Number of successful calls before returning errors
	callCount     int             // Number of Chat() calls made
	requests      []ChatRequest   // Recorded requests, for assertions
}

// MockMode defines the operation mode of the mock provider.
type MockMode int

const (
	// MockModeEcho returns the user's message (echo mode)
	MockModeEcho MockMode = iota

	// MockModeFixed returns a fixed response
	MockModeFixed

	// MockModeFixtures returns pre-defined text responses in rotation
	MockModeFixtures

	// MockModeScripted returns pre-defined full ChatResponses in order,
	// including tool calls. After the script runs out it returns an error.
	MockModeScripted

	// MockModeError always returns an error
	MockModeError
)

// MockConfig holds configuration for the mock provider.
type MockConfig struct {
	Mode       MockMode        // Operation mode
	Responses  []string        // Pre-defined text responses (for Fixed/Fixtures modes)
	Scripted   []*ChatResponse // Pre-defined full responses (for Scripted mode)
	Delay      int             // Simulated delay in milliseconds
	ErrorAfter int             // Number of successful calls before returning errors
}

// NewMockProvider creates a new mock LLM provider.
func NewMockProvider(cfg MockConfig) *MockProvider {
	return &MockProvider{
		mode:       cfg.Mode,
		responses:  cfg.Responses,
		scripted:   cfg.Scripted,
		delay:      cfg.Delay,
		errorAfter: cfg.ErrorAfter,
	}
}

// NewEchoProvider creates a mock provider that echoes user messages.
func NewEchoProvider() *MockProvider {
	return NewMockProvider(MockConfig{
		Mode: MockModeEcho,
	})
}

// NewFixedProvider creates a mock provider that always returns a fixed response.
func NewFixedProvider(response string) *MockProvider {
	return NewMockProvider(MockConfig{
		Mode:      MockModeFixed,
		Responses: []string{response},
	})
}

// NewFixturesProvider creates a mock provider that cycles through pre-defined responses.
func NewFixturesProvider(responses []string) *MockProvider {
	return NewMockProvider(MockConfig{
		Mode:      MockModeFixtures,
		Responses: responses,
	})
}

// NewScriptedProvider creates a mock provider that plays back the given
// responses in order, tool calls included.
func NewScriptedProvider(responses ...*ChatResponse) *MockProvider {
	return NewMockProvider(MockConfig{
		Mode:     MockModeScripted,
		Scripted: responses,
	})
}

// NewErrorProvider creates a mock provider that always returns errors.
func NewErrorProvider() *MockProvider {
	return NewMockProvider(MockConfig{
		Mode: MockModeError,
	})
}

// Chat implements the Provider interface.
func (m *MockProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.requests = append(m.requests, req)

	if m.delay > 0 {
		time.Sleep(time.Duration(m.delay) * time.Millisecond)
	}

	if m.errorAfter > 0 && m.callCount > m.errorAfter {
		return nil, fmt.Errorf("%w: mock provider error after %d calls", ErrModelCall, m.errorAfter)
	}

	if m.mode == MockModeError {
		return nil, fmt.Errorf("%w: mock provider error", ErrModelCall)
	}

	if m.mode == MockModeScripted {
		if m.scriptedIndex >= len(m.scripted) {
			return nil, fmt.Errorf("%w: scripted responses exhausted after %d calls", ErrModelCall, len(m.scripted))
		}
		resp := m.scripted[m.scriptedIndex]
		m.scriptedIndex++
		return resp, nil
	}

	// Get the user message (last message if available)
	var userMessage string
	if len(req.Messages) > 0 {
		lastMsg := req.Messages[len(req.Messages)-1]
		if lastMsg.Role == RoleUser {
			userMessage = lastMsg.Content
		}
	}

	var response string
	switch m.mode {
	case MockModeEcho:
		if userMessage != "" {
			response = fmt.Sprintf("Echo: %s", userMessage)
		} else {
			response = "Echo: (no user message)"
		}
	case MockModeFixed:
		if len(m.responses) > 0 {
			response = m.responses[0]
		} else {
			response = "Fixed response: no responses configured"
		}
	case MockModeFixtures:
		if len(m.responses) > 0 {
			response = m.responses[m.responseIndex]
			m.responseIndex = (m.responseIndex + 1) % len(m.responses)
		} else {
			response = "Fixtures: no responses configured"
		}
	default:
		response = "Unknown mock mode"
	}

	return &ChatResponse{
		Content:      response,
		Model:        req.Model,
		FinishReason: FinishReasonStop,
		Usage: Usage{
			PromptTokens:     len(userMessage),
			CompletionTokens: len(response),
			TotalTokens:      len(userMessage) + len(response),
		},
	}, nil
}

// SupportsToolCalling implements the Provider interface. Scripted mocks
// support tool calling so decision-loop tests can exercise tool dispatch.
func (m *MockProvider) SupportsToolCalling() bool {
	return m.mode == MockModeScripted
}

// GetDefaultModel implements the Provider interface.
func (m *MockProvider) GetDefaultModel() string {
	return "mock-model"
}

// GetCallCount returns the number of Chat() calls made to this provider.
func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// ResetCallCount resets the call counter.
func (m *MockProvider) ResetCallCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
}

// SetErrorAfter configures the provider to return errors after n calls.
func (m *MockProvider) SetErrorAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorAfter = n
}

// Requests returns the recorded chat requests.
func (m *MockProvider) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
