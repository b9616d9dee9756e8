package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/mategen/internal/orchestrator"
	"github.com/flemzord/mategen/internal/provider"
)

// scriptedPrompter answers from fixed queues and records the titles.
type scriptedPrompter struct {
	selects []int
	inputs  []string
	err     error
	titles  []string
}

func (p *scriptedPrompter) Select(_ context.Context, title string, options []string) (int, error) {
	p.titles = append(p.titles, title)
	if p.err != nil {
		return 0, p.err
	}
	if len(p.selects) == 0 {
		return 0, errors.New("unexpected select: " + title)
	}
	c := p.selects[0]
	p.selects = p.selects[1:]
	if c >= len(options) {
		return 0, errors.New("choice out of range")
	}
	return c, nil
}

func (p *scriptedPrompter) Input(_ context.Context, title string) (string, error) {
	p.titles = append(p.titles, title)
	if p.err != nil {
		return "", p.err
	}
	if len(p.inputs) == 0 {
		return "", errors.New("unexpected input: " + title)
	}
	s := p.inputs[0]
	p.inputs = p.inputs[1:]
	return s, nil
}

func newTestConsole(t *testing.T, p Prompter) (*Console, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r, err := NewRenderer(&out, false, 0)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return New(p, r), &out
}

func TestConsole_ReviewText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		selects []int
		inputs  []string
		want    orchestrator.TextDecision
	}{
		{
			name:    "accept",
			selects: []int{0},
			want:    orchestrator.TextDecision{Action: orchestrator.TextAccept},
		},
		{
			name:    "revise retries empty feedback",
			selects: []int{1},
			inputs:  []string{"", "use a bar chart"},
			want:    orchestrator.TextDecision{Action: orchestrator.TextRevise, Text: "use a bar chart"},
		},
		{
			name:    "new question",
			selects: []int{2},
			inputs:  []string{"how many users churned?"},
			want:    orchestrator.TextDecision{Action: orchestrator.TextNewQuestion, Text: "how many users churned?"},
		},
		{
			name:    "abort",
			selects: []int{3},
			want:    orchestrator.TextDecision{Action: orchestrator.TextAbort},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, out := newTestConsole(t, &scriptedPrompter{selects: tt.selects, inputs: tt.inputs})
			got, err := c.ReviewText(context.Background(), "The churn rate is **26%**.")
			if err != nil {
				t.Fatalf("ReviewText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReviewText() = %+v, want %+v", got, tt.want)
			}
			if !strings.Contains(out.String(), "26%") {
				t.Errorf("draft not rendered: %q", out.String())
			}
		})
	}
}

func TestConsole_ReviewPlan(t *testing.T) {
	t.Parallel()

	p := &scriptedPrompter{selects: []int{0}}
	c, out := newTestConsole(t, p)
	got, err := c.ReviewPlan(context.Background(), "1. Load the table\n2. Count rows")
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != orchestrator.TextAccept {
		t.Errorf("action = %v, want accept", got.Action)
	}
	if !strings.Contains(out.String(), "Count rows") {
		t.Errorf("plan not rendered: %q", out.String())
	}
}

func TestConsole_OnTransientFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		selects []int
		inputs  []string
		want    orchestrator.FailureDecision
	}{
		{"wait", []int{0}, nil, orchestrator.FailureDecision{Action: orchestrator.FailureWait}},
		{"switch", []int{1}, []string{"gpt-4"}, orchestrator.FailureDecision{Action: orchestrator.FailureSwitchModel, Model: "gpt-4"}},
		{"switch without name waits", []int{1}, []string{""}, orchestrator.FailureDecision{Action: orchestrator.FailureWait}},
		{"abort", []int{2}, nil, orchestrator.FailureDecision{Action: orchestrator.FailureAbort}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, out := newTestConsole(t, &scriptedPrompter{selects: tt.selects, inputs: tt.inputs})
			got, err := c.OnTransientFailure(context.Background(), errors.New("rate limited"), 2)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("OnTransientFailure() = %+v, want %+v", got, tt.want)
			}
			if !strings.Contains(out.String(), "attempt 2") {
				t.Errorf("failure not reported: %q", out.String())
			}
		})
	}
}

func TestConsole_Rephrase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		wantQ  string
		wantOK bool
	}{
		{"what is the average age?", "what is the average age?", true},
		{"exit", "", false},
		{" EXIT ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			c, out := newTestConsole(t, &scriptedPrompter{inputs: []string{tt.input}})
			q, ok, err := c.Rephrase(context.Background(), "Try asking about a single table.")
			if err != nil {
				t.Fatal(err)
			}
			if q != tt.wantQ || ok != tt.wantOK {
				t.Errorf("Rephrase() = %q, %v; want %q, %v", q, ok, tt.wantQ, tt.wantOK)
			}
			if !strings.Contains(out.String(), "single table") {
				t.Errorf("guidance not rendered: %q", out.String())
			}
		})
	}
}

func TestConsole_ReviewToolCall(t *testing.T) {
	t.Parallel()

	call := provider.ToolCall{Name: "python_inter", Arguments: []byte(`{"py_code":"1+1"}`)}

	c, _ := newTestConsole(t, &scriptedPrompter{selects: []int{0}})
	got, err := c.ReviewToolCall(context.Background(), call, "```python\n1+1\n```")
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != orchestrator.CallRun {
		t.Errorf("action = %v, want run", got.Action)
	}

	c, out := newTestConsole(t, &scriptedPrompter{selects: []int{1}, inputs: []string{"use pandas"}})
	got, err = c.ReviewToolCall(context.Background(), call, "```python\n1+1\n```")
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != orchestrator.CallRevise || got.Feedback != "use pandas" {
		t.Errorf("ReviewToolCall() = %+v", got)
	}
	if !strings.Contains(out.String(), "python_inter") {
		t.Errorf("call name not printed: %q", out.String())
	}
}

func TestConsole_NextQuestion(t *testing.T) {
	t.Parallel()

	c, _ := newTestConsole(t, &scriptedPrompter{inputs: []string{"show tables", "exit"}})
	q, ok, err := c.NextQuestion(context.Background())
	if err != nil || !ok || q != "show tables" {
		t.Fatalf("NextQuestion() = %q, %v, %v", q, ok, err)
	}
	_, ok, err = c.NextQuestion(context.Background())
	if err != nil || ok {
		t.Fatalf("exit: ok = %v, err = %v", ok, err)
	}
}

func TestConsole_PromptErrors(t *testing.T) {
	t.Parallel()

	c, _ := newTestConsole(t, &scriptedPrompter{err: ErrAborted})
	ctx := context.Background()

	if _, err := c.ReviewText(ctx, "draft"); !IsAborted(err) {
		t.Errorf("ReviewText error = %v", err)
	}
	if _, err := c.OnTransientFailure(ctx, errors.New("x"), 1); !IsAborted(err) {
		t.Errorf("OnTransientFailure error = %v", err)
	}
	if _, _, err := c.Rephrase(ctx, "g"); !IsAborted(err) {
		t.Errorf("Rephrase error = %v", err)
	}
	if _, err := c.ReviewToolCall(ctx, provider.ToolCall{Name: "t"}, "code"); !IsAborted(err) {
		t.Errorf("ReviewToolCall error = %v", err)
	}
}

func TestConsole_Observer(t *testing.T) {
	t.Parallel()

	c, out := newTestConsole(t, &scriptedPrompter{})
	obs := c.Observer()

	obs.OnToolCall(provider.ToolCall{Name: "sql_inter"}, "```sql\nSELECT 1\n```")
	obs.OnDebugStart(orchestrator.DebugDeep)
	obs.OnRetry(errors.New("503"), 1, 30*time.Second)
	obs.OnNoDecomposition()

	for _, want := range []string{"sql_inter", "SELECT 1", "deep debug", "30s", "no decomposition"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("narration missing %q:\n%s", want, out.String())
		}
	}
}

func TestRenderer_PlainOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r, err := NewRenderer(&out, false, 40)
	if err != nil {
		t.Fatal(err)
	}
	r.Markdown("# Result\n\nChurn is **high**.")
	if strings.Contains(out.String(), "\x1b[") {
		t.Errorf("plain renderer emitted ANSI escapes: %q", out.String())
	}
	if !strings.Contains(out.String(), "Result") || !strings.Contains(out.String(), "high") {
		t.Errorf("Markdown() = %q", out.String())
	}
}
