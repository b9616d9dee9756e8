package orchestrator

import (
	"github.com/flemzord/mategen/internal/provider"
)

// ReplyKind tags the shape of an assistant reply.
type ReplyKind int

const (
	// ReplyText is a plain-text answer.
	ReplyText ReplyKind = iota

	// ReplyToolCall requests a tool invocation.
	ReplyToolCall
)

// String implements fmt.Stringer.
func (k ReplyKind) String() string {
	if k == ReplyToolCall {
		return "tool_call"
	}
	return "text"
}

// Reply is an assistant reply as a tagged variant: Text is set for
// ReplyText, Call for ReplyToolCall.
type Reply struct {
	Kind ReplyKind
	Text string
	Call provider.ToolCall

	// Message is the raw assistant message, appended to history as-is.
	Message provider.Message
}

// classify turns a completion into a Reply. A message carrying a named tool
// call is a ReplyToolCall whatever its content.
func classify(resp provider.CompletionResponse) Reply {
	msg := resp.Message.Clone()
	if msg.Role == "" {
		msg.Role = provider.RoleAssistant
	}
	if msg.IsToolCall() {
		return Reply{Kind: ReplyToolCall, Call: *msg.ToolCall, Text: msg.Content, Message: msg}
	}
	return Reply{Kind: ReplyText, Text: msg.Content, Message: msg}
}
