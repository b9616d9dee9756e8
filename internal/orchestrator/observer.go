package orchestrator

import (
	"time"

	"github.com/flemzord/mategen/internal/provider"
)

// DebugMode selects the debug prompt list.
type DebugMode string

const (
	// DebugFast replays one fix-and-rerun prompt.
	DebugFast DebugMode = "fast"

	// DebugDeep replays the diagnose, propose and implement prompts.
	DebugDeep DebugMode = "deep"
)

// Observer receives narration events. Every field is optional.
type Observer struct {
	// OnReply is called for every classified model reply.
	OnReply func(r Reply)

	// OnToolCall is called before a tool runs, with the rendered code.
	OnToolCall func(call provider.ToolCall, code string)

	// OnToolResult is called with every tool-result message.
	OnToolResult func(result provider.Message)

	// OnDebugStart is called when a debug episode begins.
	OnDebugStart func(mode DebugMode)

	// OnDebugPrompt is called for every replayed debug prompt.
	OnDebugPrompt func(prompt string)

	// OnRetry is called before waiting on a transient failure.
	OnRetry func(err error, attempt int, wait time.Duration)

	// OnNoDecomposition is called when a decomposition request came back
	// as a tool call.
	OnNoDecomposition func()
}

func (o *Observer) reply(r Reply) {
	if o.OnReply != nil {
		o.OnReply(r)
	}
}

func (o *Observer) toolCall(call provider.ToolCall, code string) {
	if o.OnToolCall != nil {
		o.OnToolCall(call, code)
	}
}

func (o *Observer) toolResult(m provider.Message) {
	if o.OnToolResult != nil {
		o.OnToolResult(m)
	}
}

func (o *Observer) debugStart(mode DebugMode) {
	if o.OnDebugStart != nil {
		o.OnDebugStart(mode)
	}
}

func (o *Observer) debugPrompt(p string) {
	if o.OnDebugPrompt != nil {
		o.OnDebugPrompt(p)
	}
}

func (o *Observer) retry(err error, attempt int, wait time.Duration) {
	if o.OnRetry != nil {
		o.OnRetry(err, attempt, wait)
	}
}

func (o *Observer) noDecomposition() {
	if o.OnNoDecomposition != nil {
		o.OnNoDecomposition()
	}
}
