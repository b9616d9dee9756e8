package provider

import (
	"bytes"
	"encoding/json"
)

// Role identifies the sender of a message in a conversation.
type Role string

// Role constants for conversation messages.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason describes why the model stopped generating.
type FinishReason string

// FinishReason constants for model completion termination.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolUse   FinishReason = "tool_use"
	FinishReasonFiltering FinishReason = "filtering"
)

// Message is a single conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`

	// ToolCall is set on assistant messages that request a tool invocation.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// ToolCallID correlates a tool-role result with the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// IsToolCall reports whether m requests a tool invocation.
func (m Message) IsToolCall() bool {
	return m.ToolCall != nil && m.ToolCall.Name != ""
}

// Clone returns a deep copy of m. The tool call and its argument bytes are
// not shared with the original.
func (m Message) Clone() Message {
	if m.ToolCall != nil {
		tc := *m.ToolCall
		tc.Arguments = bytes.Clone(m.ToolCall.Arguments)
		m.ToolCall = &tc
	}
	return m
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a tool the model may invoke.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolChoice tells the model how to use the offered tools: "auto", "none",
// or the name of a tool it must call.
type ToolChoice string

// ToolChoice values with fixed meaning. Any other value names a tool.
const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// CompletionRequest is the input to Provider.Complete.
type CompletionRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model       string           `json:"model,omitempty"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	ToolChoice  ToolChoice       `json:"tool_choice,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

// CompletionResponse is the output of Provider.Complete.
type CompletionResponse struct {
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
