package provider

import (
	"encoding/json"
	"testing"
)

func TestMessageCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	orig := Message{
		Role:     RoleAssistant,
		ToolCall: &ToolCall{ID: "c1", Name: "sql_inter", Arguments: json.RawMessage(`{"sql_query":"SELECT 1"}`)},
	}
	cp := orig.Clone()

	cp.ToolCall.Name = "python_inter"
	cp.ToolCall.Arguments[2] = 'X'

	if orig.ToolCall.Name != "sql_inter" {
		t.Errorf("original tool name changed to %q", orig.ToolCall.Name)
	}
	if string(orig.ToolCall.Arguments) != `{"sql_query":"SELECT 1"}` {
		t.Errorf("original arguments changed to %s", orig.ToolCall.Arguments)
	}
}

func TestMessageIsToolCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"plain text", Message{Role: RoleAssistant, Content: "hi"}, false},
		{"tool call", Message{Role: RoleAssistant, ToolCall: &ToolCall{Name: "f"}}, true},
		{"empty call name", Message{Role: RoleAssistant, ToolCall: &ToolCall{}}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsToolCall(); got != tt.want {
			t.Errorf("%s: IsToolCall() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMessageJSONOmitsEmptyFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Message{Role: RoleSystem, Content: "you are helpful"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"name", "tool_call", "tool_call_id"} {
		if _, ok := raw[key]; ok {
			t.Errorf("expected %s to be omitted when empty", key)
		}
	}
}
