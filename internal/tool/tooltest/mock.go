// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/tool"
)

// MockTool is a configurable mock implementation of tool.Tool.
type MockTool struct {
	NameFunc        func() string
	DescriptionFunc func() string
	SchemaFunc      func() json.RawMessage
	ExecuteFunc     func(ctx context.Context, args map[string]any, env tool.Env) (string, error)

	mu        sync.Mutex
	execCalls []map[string]any
}

// Name implements tool.Tool.
func (m *MockTool) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock_tool"
}

// Description implements tool.Tool.
func (m *MockTool) Description() string {
	if m.DescriptionFunc != nil {
		return m.DescriptionFunc()
	}
	return "a mock tool"
}

// Schema implements tool.Tool.
func (m *MockTool) Schema() json.RawMessage {
	if m.SchemaFunc != nil {
		return m.SchemaFunc()
	}
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

// Execute implements tool.Tool.
func (m *MockTool) Execute(ctx context.Context, args map[string]any, env tool.Env) (string, error) {
	m.mu.Lock()
	m.execCalls = append(m.execCalls, args)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args, env)
	}
	return "ok", nil
}

// ExecuteCalls returns the arguments of every Execute call so far.
func (m *MockTool) ExecuteCalls() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.execCalls))
	copy(out, m.execCalls)
	return out
}

// SimpleTool creates a tool with an empty-object schema whose Execute
// returns result.
func SimpleTool(name, result string) *MockTool {
	return &MockTool{
		NameFunc:        func() string { return name },
		DescriptionFunc: func() string { return "simple test tool: " + name },
		ExecuteFunc: func(context.Context, map[string]any, tool.Env) (string, error) {
			return result, nil
		},
	}
}

// FailingTool creates a tool whose Execute always returns err.
func FailingTool(name string, err error) *MockTool {
	return &MockTool{
		NameFunc: func() string { return name },
		ExecuteFunc: func(context.Context, map[string]any, tool.Env) (string, error) {
			return "", err
		},
	}
}

// MockGenerator is a Func-field tool.SchemaGenerator.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, name, description string) (provider.ToolDefinition, error)

	mu    sync.Mutex
	calls int
}

// Generate implements tool.SchemaGenerator.
func (g *MockGenerator) Generate(ctx context.Context, name, description string) (provider.ToolDefinition, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.GenerateFunc != nil {
		return g.GenerateFunc(ctx, name, description)
	}
	return provider.ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	}, nil
}

// Calls returns the number of Generate calls.
func (g *MockGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Interface guards.
var (
	_ tool.Tool            = (*MockTool)(nil)
	_ tool.SchemaGenerator = (*MockGenerator)(nil)
)
