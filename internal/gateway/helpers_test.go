package gateway

import (
	"context"
	"sync"

	"github.com/flemzord/mategen/internal/provider"
)

// fakeAssistant is a minimal in-memory Assistant.
type fakeAssistant struct {
	mu       sync.Mutex
	status   Status
	messages []provider.Message
	resetErr error
	resets   int
}

func (a *fakeAssistant) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status
	st.Messages = len(a.messages)
	return st
}

func (a *fakeAssistant) Transcript() []provider.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]provider.Message(nil), a.messages...)
}

func (a *fakeAssistant) Reset(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resetErr != nil {
		return a.resetErr
	}
	a.resets++
	a.messages = nil
	return nil
}

func (a *fakeAssistant) resetCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resets
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{
		status: Status{Model: "gpt-4", Budget: 6000, Tokens: 42, Tools: []string{"python_inter", "sql_inter"}},
		messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "be brief"},
			{Role: provider.RoleUser, Content: "hi"},
			{Role: provider.RoleAssistant, ToolCall: &provider.ToolCall{ID: "call_1", Name: "sql_inter"}},
			{Role: provider.RoleTool, Name: "sql_inter", ToolCallID: "call_1", Content: "[]"},
		},
	}
}
