package openai

import (
	"encoding/json"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flemzord/mategen/internal/provider"
)

// toMessages converts the conversation into go-openai messages. Calls
// restored from transcripts may lack IDs; those get synthetic ones and the
// next tool result without an ID is paired with the most recent call.
//
// The API requires every tool call to be answered by the message right
// after it. Eviction can break such a pair, so an orphaned result is
// dropped and an unanswered call keeps only its text, if any.
func toMessages(msgs []provider.Message) []goopenai.ChatCompletionMessage {
	ids := callIDs(msgs)
	paired := func(i int) bool {
		return i+1 < len(msgs) && msgs[i].IsToolCall() &&
			msgs[i+1].Role == provider.RoleTool && ids[i] == ids[i+1]
	}

	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for i, m := range msgs {
		cm := goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		}
		switch {
		case m.IsToolCall():
			if !paired(i) {
				if m.Content == "" {
					continue
				}
				break
			}
			args := string(m.ToolCall.Arguments)
			if args == "" {
				args = "{}"
			}
			cm.ToolCalls = []goopenai.ToolCall{{
				ID:   ids[i],
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      m.ToolCall.Name,
					Arguments: args,
				},
			}}
		case m.Role == provider.RoleTool:
			if i == 0 || !paired(i-1) {
				continue
			}
			cm.ToolCallID = ids[i]
		}
		out = append(out, cm)
	}
	return out
}

// callIDs resolves the wire ID of every tool call and tool result in msgs.
// Other positions are left empty.
func callIDs(msgs []provider.Message) []string {
	ids := make([]string, len(msgs))
	var last string
	synthetic := 0
	for i, m := range msgs {
		switch {
		case m.IsToolCall():
			last = m.ToolCall.ID
			if last == "" {
				synthetic++
				last = fmt.Sprintf("call_%d", synthetic)
			}
			ids[i] = last
		case m.Role == provider.RoleTool:
			ids[i] = m.ToolCallID
			if ids[i] == "" {
				ids[i] = last
			}
		}
	}
	return ids
}

func toTools(defs []provider.ToolDefinition) []goopenai.Tool {
	out := make([]goopenai.Tool, len(defs))
	for i, d := range defs {
		var params any
		if len(d.Parameters) > 0 {
			params = d.Parameters
		}
		out[i] = goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

// toToolChoice maps the policy to the wire form: a bare string for
// "auto"/"none", an object naming the function otherwise.
func toToolChoice(c provider.ToolChoice) any {
	switch c {
	case "":
		return nil
	case provider.ToolChoiceAuto, provider.ToolChoiceNone:
		return string(c)
	default:
		return goopenai.ToolChoice{
			Type:     goopenai.ToolTypeFunction,
			Function: goopenai.ToolFunction{Name: string(c)},
		}
	}
}

// fromChoice converts the first choice of a response. Only the first tool
// call is kept; the orchestrator dispatches one call per turn.
func fromChoice(choice goopenai.ChatCompletionChoice) (provider.Message, int) {
	msg := provider.Message{
		Role:    provider.RoleAssistant,
		Content: choice.Message.Content,
	}

	switch {
	case len(choice.Message.ToolCalls) > 0:
		tc := choice.Message.ToolCalls[0]
		msg.ToolCall = &provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: rawArguments(tc.Function.Arguments),
		}
		return msg, len(choice.Message.ToolCalls) - 1
	case choice.Message.FunctionCall != nil:
		msg.ToolCall = &provider.ToolCall{
			Name:      choice.Message.FunctionCall.Name,
			Arguments: rawArguments(choice.Message.FunctionCall.Arguments),
		}
	}
	return msg, 0
}

func rawArguments(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}

func fromFinishReason(r goopenai.FinishReason) provider.FinishReason {
	switch r {
	case goopenai.FinishReasonLength:
		return provider.FinishReasonLength
	case goopenai.FinishReasonToolCalls, goopenai.FinishReasonFunctionCall:
		return provider.FinishReasonToolUse
	case goopenai.FinishReasonContentFilter:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}
