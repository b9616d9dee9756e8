package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/mategen/internal/conversation"
	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/telemetry"
)

// debugSession replays fix-up prompts against a fork of the conversation
// that already holds the failing call and its error.
type debugSession struct {
	mode    DebugMode
	fork    *conversation.History
	prompts []string
}

func newDebugSession(h *conversation.History, call, result provider.Message, mode DebugMode) *debugSession {
	fork := h.Copy()
	fork.Append(call, result)
	prompts := FastDebugPrompts
	if mode == DebugDeep {
		prompts = DeepDebugPrompts
	}
	return &debugSession{mode: mode, fork: fork, prompts: prompts}
}

// debug runs a debug session for the failed tool call in f and replaces the
// frame's history with the session's fork. Beyond the depth bound the error
// is handed to the model as an ordinary result instead.
func (o *Orchestrator) debug(ctx context.Context, f *frame) (_ state, err error) {
	if f.depth >= o.maxDepth {
		o.logger.Warn("debug depth reached, returning tool error to the model",
			"tool", f.reply.Call.Name, "depth", f.depth)
		f.h.Append(f.reply.Message, f.result)
		return stateAwaitingModel, nil
	}

	mode := DebugFast
	if f.enhanced {
		mode = DebugDeep
	}
	s := newDebugSession(f.h, f.reply.Message, f.result, mode)

	ctx, span := telemetry.StartSpan(ctx, o.tracer, "orchestrator.debug",
		attribute.String("mategen.debug_mode", string(mode)),
		attribute.String("mategen.tool", f.reply.Call.Name),
		attribute.Int("mategen.depth", f.depth),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	o.metrics.DebugEpisode(string(mode))
	o.observer.debugStart(mode)
	o.logger.Info("tool failed, starting debug session", "tool", f.reply.Call.Name, "mode", mode)

	for _, p := range s.prompts {
		s.fork.Append(userMessage(p))
		o.observer.debugPrompt(p)
		child := &frame{h: s.fork, depth: f.depth + 1, developer: f.developer}
		if err := o.run(ctx, child); err != nil {
			return stateResolved, err
		}
	}

	f.h.ReplaceWith(s.fork)
	return stateResolved, nil
}
