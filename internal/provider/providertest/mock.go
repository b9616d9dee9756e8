// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/mategen/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. An unset CompleteFunc panics.
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc          func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	ContextWindowSizeFunc func() int
	ModelNameFunc         func() string

	mu       sync.Mutex
	Requests []provider.CompletionRequest
}

// Complete records the request and delegates to CompleteFunc.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	cp := req
	cp.Messages = make([]provider.Message, len(req.Messages))
	for i, msg := range req.Messages {
		cp.Messages[i] = msg.Clone()
	}
	m.Requests = append(m.Requests, cp)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// CompleteCalls returns how many times Complete was called.
func (m *MockProvider) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// ContextWindowSize delegates to ContextWindowSizeFunc, defaulting to 8192.
func (m *MockProvider) ContextWindowSize() int {
	if m.ContextWindowSizeFunc == nil {
		return 8192
	}
	return m.ContextWindowSizeFunc()
}

// ModelName delegates to ModelNameFunc, defaulting to "mock-model".
func (m *MockProvider) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock-model"
	}
	return m.ModelNameFunc()
}

// Script returns a MockProvider that answers with the given responses in
// order. Each entry is either a provider.CompletionResponse or an error.
// Calls past the end of the script repeat the last entry.
func Script(entries ...any) *MockProvider {
	var mu sync.Mutex
	idx := 0
	return &MockProvider{
		CompleteFunc: func(_ context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
			mu.Lock()
			defer mu.Unlock()
			e := entries[min(idx, len(entries)-1)]
			idx++
			switch v := e.(type) {
			case error:
				return provider.CompletionResponse{}, v
			case provider.CompletionResponse:
				return v, nil
			default:
				panic("providertest: script entry must be a CompletionResponse or an error")
			}
		},
	}
}

// Text builds a plain-text assistant response.
func Text(content string) provider.CompletionResponse {
	return provider.CompletionResponse{
		Message:      provider.Message{Role: provider.RoleAssistant, Content: content},
		FinishReason: provider.FinishReasonStop,
	}
}

// Call builds an assistant response requesting a tool invocation.
func Call(name, args string) provider.CompletionResponse {
	return provider.CompletionResponse{
		Message: provider.Message{
			Role:     provider.RoleAssistant,
			ToolCall: &provider.ToolCall{ID: "call_" + name, Name: name, Arguments: []byte(args)},
		},
		FinishReason: provider.FinishReasonToolUse,
	}
}

// Interface guard.
var _ provider.Provider = (*MockProvider)(nil)
