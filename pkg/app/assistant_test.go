package app

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/flemzord/mategen/internal/conversation"
	"github.com/flemzord/mategen/internal/orchestrator"
	"github.com/flemzord/mategen/internal/orchestrator/orchestratortest"
	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/provider/providertest"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/security/securitytest"
	"github.com/flemzord/mategen/internal/store"
	"github.com/flemzord/mategen/internal/tool"
)

type testAssistant struct {
	*Assistant
	provider *providertest.MockProvider
	audit    *securitytest.AuditRecorder
}

func (ta *testAssistant) eventTypes() []security.EventType { return ta.audit.Types() }

type assistantOpts struct {
	human   orchestrator.HumanDecision
	dev     bool
	budget  int
	project *store.Project
	tools   []tool.Tool
}

func newTestAssistant(t *testing.T, opts assistantOpts, script ...any) *testAssistant {
	t.Helper()

	ta := &testAssistant{
		provider: providertest.Script(script...),
		audit:    securitytest.NewAuditRecorder(),
	}

	registry := tool.NewRegistry(nil)
	for _, tl := range opts.tools {
		if err := registry.Register(context.Background(), tl, nil); err != nil {
			t.Fatalf("Register(%s) error = %v", tl.Name(), err)
		}
	}
	var invoker *tool.Invoker
	if registry.Len() > 0 {
		invoker = tool.NewInvoker(tool.InvokerConfig{Registry: registry, Workdir: t.TempDir()})
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Provider:  ta.provider,
		Invoker:   invoker,
		Human:     opts.human,
		Developer: opts.dev,
	})
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}

	a, err := NewAssistant(AssistantConfig{
		Orchestrator: orch,
		Registry:     registry,
		System:       []string{"You are a data analyst."},
		Budget:       opts.budget,
		Counter:      conversation.NewCharCounter(0),
		Project:      opts.project,
		Audit:        ta.audit.Logger(),
	})
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	ta.Assistant = a
	return ta
}

func addTool() tool.Tool {
	return &tool.Func{
		ToolName:        "add",
		ToolDescription: "Adds a and b.",
		Parameters:      json.RawMessage(`{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}}}`),
		Fn: func(_ context.Context, args map[string]any, _ tool.Env) (string, error) {
			a, err := tool.NumberArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := tool.NumberArg(args, "b")
			if err != nil {
				return "", err
			}
			return strconv.FormatFloat(a+b, 'f', -1, 64), nil
		},
	}
}

func TestAssistant_Ask(t *testing.T) {
	t.Parallel()

	ta := newTestAssistant(t, assistantOpts{}, providertest.Text("There are 7043 customers."))
	got, err := ta.Ask(context.Background(), "How many customers?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got != "There are 7043 customers." {
		t.Errorf("Ask() = %q", got)
	}

	msgs := ta.Transcript()
	wantRoles := []provider.Role{provider.RoleSystem, provider.RoleUser, provider.RoleAssistant}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("transcript has %d messages, want %d", len(msgs), len(wantRoles))
	}
	for i, r := range wantRoles {
		if msgs[i].Role != r {
			t.Errorf("message %d role = %s, want %s", i, msgs[i].Role, r)
		}
	}

	st := ta.Status()
	if st.Model != "mock-model" || st.Messages != 3 || st.Tokens == 0 {
		t.Errorf("Status() = %+v", st)
	}
	if ev := ta.eventTypes(); len(ev) != 1 || ev[0] != security.EventMessage {
		t.Errorf("audit events = %v", ev)
	}
}

func TestAssistant_AskWithTool(t *testing.T) {
	t.Parallel()

	ta := newTestAssistant(t, assistantOpts{tools: []tool.Tool{addTool()}},
		providertest.Call("add", `{"a": 2, "b": 3}`),
		providertest.Text("The sum is 5."),
	)
	got, err := ta.Ask(context.Background(), "What is 2 + 3?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got != "The sum is 5." {
		t.Errorf("Ask() = %q", got)
	}

	msgs := ta.Transcript()
	// system, question, call, result, narration
	if len(msgs) != 5 {
		t.Fatalf("transcript has %d messages, want 5", len(msgs))
	}
	if msgs[3].Role != provider.RoleTool || msgs[3].Content != "5" {
		t.Errorf("tool result = %+v", msgs[3])
	}
	if tools := ta.Status().Tools; len(tools) != 1 || tools[0] != "add" {
		t.Errorf("Status().Tools = %v", tools)
	}
}

func TestAssistant_AskProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("invalid request")
	ta := newTestAssistant(t, assistantOpts{}, boom)
	if _, err := ta.Ask(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Errorf("Ask() error = %v, want %v", err, boom)
	}
}

func TestAssistant_BudgetEvicts(t *testing.T) {
	t.Parallel()

	ta := newTestAssistant(t, assistantOpts{budget: 60},
		providertest.Text("an answer of moderate length, long enough to count"),
	)
	for i := range 5 {
		if _, err := ta.Ask(context.Background(), "question number "+strconv.Itoa(i)); err != nil {
			t.Fatalf("Ask(%d) error = %v", i, err)
		}
	}
	st := ta.Status()
	if st.Tokens >= 60 {
		t.Errorf("tokens = %d, want below budget 60", st.Tokens)
	}
	if msgs := ta.Transcript(); msgs[0].Role != provider.RoleSystem {
		t.Errorf("system message evicted: %+v", msgs[0])
	}
}

// fakeAsker supplies queued questions and records answers.
type fakeAsker struct {
	questions []string
	answers   []string
	err       error
}

func (f *fakeAsker) NextQuestion(context.Context) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	if len(f.questions) == 0 {
		return "", false, nil
	}
	q := f.questions[0]
	f.questions = f.questions[1:]
	return q, true, nil
}

func (f *fakeAsker) Answer(text string) { f.answers = append(f.answers, text) }

func TestAssistant_Chat(t *testing.T) {
	t.Parallel()

	ta := newTestAssistant(t, assistantOpts{},
		providertest.Text("first answer"),
		providertest.Text("second answer"),
	)
	asker := &fakeAsker{questions: []string{"second question"}}
	if err := ta.Chat(context.Background(), "first question", asker); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if len(asker.answers) != 2 || asker.answers[0] != "first answer" || asker.answers[1] != "second answer" {
		t.Errorf("answers = %q", asker.answers)
	}
	if ta.provider.CompleteCalls() != 2 {
		t.Errorf("provider calls = %d, want 2", ta.provider.CompleteCalls())
	}
}

func TestAssistant_ChatEndsOnAbort(t *testing.T) {
	t.Parallel()

	human := &orchestratortest.Scripted{
		Texts: []orchestrator.TextDecision{{Action: orchestrator.TextAbort}},
	}
	ta := newTestAssistant(t, assistantOpts{human: human, dev: true}, providertest.Text("draft"))
	asker := &fakeAsker{questions: []string{"never asked"}}
	if err := ta.Chat(context.Background(), "q", asker); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if len(asker.answers) != 0 {
		t.Errorf("aborted draft was answered: %q", asker.answers)
	}
	if len(asker.questions) != 1 {
		t.Error("chat continued after abort")
	}
}

func TestAssistant_ChatPromptError(t *testing.T) {
	t.Parallel()

	boom := errors.New("stdin closed")
	ta := newTestAssistant(t, assistantOpts{}, providertest.Text("unused"))
	if err := ta.Chat(context.Background(), "", &fakeAsker{err: boom}); !errors.Is(err, boom) {
		t.Errorf("Chat() error = %v, want %v", err, boom)
	}
}

func TestAssistant_Reset(t *testing.T) {
	t.Parallel()

	ta := newTestAssistant(t, assistantOpts{}, providertest.Text("answer"))
	if _, err := ta.Ask(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if err := ta.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	msgs := ta.Transcript()
	if len(msgs) != 1 || msgs[0].Role != provider.RoleSystem {
		t.Errorf("after Reset transcript = %+v", msgs)
	}
	ev := ta.eventTypes()
	if ev[len(ev)-1] != security.EventHistoryReset {
		t.Errorf("last audit event = %s, want history reset", ev[len(ev)-1])
	}
}

func TestAssistant_UploadRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	project, err := store.Open(ctx, store.NewMemoryStore(), "churn", "part1")
	if err != nil {
		t.Fatal(err)
	}
	ta := newTestAssistant(t, assistantOpts{project: project}, providertest.Text("26% churned."))

	if _, err := ta.Ask(ctx, "What is the churn rate?"); err != nil {
		t.Fatal(err)
	}
	before := ta.Transcript()
	if err := ta.Upload(ctx); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if err := ta.Reset(ctx); err != nil {
		t.Fatal(err)
	}

	n, err := ta.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Restore() = %d messages, want 2", n)
	}
	after := ta.Transcript()
	if len(after) != len(before) {
		t.Fatalf("restored %d messages, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].Role != before[i].Role || after[i].Content != before[i].Content {
			t.Errorf("message %d = %+v, want %+v", i, after[i], before[i])
		}
	}

	st := ta.Status()
	if st.Project != "churn" || st.Part != "part1" {
		t.Errorf("Status() project = %q/%q", st.Project, st.Part)
	}

	for _, ev := range ta.audit.Events() {
		if ev.Project != "churn" || ev.Part != "part1" {
			t.Errorf("event %s not tagged with the project: %+v", ev.Type, ev)
		}
	}
}

func TestAssistant_NoProject(t *testing.T) {
	t.Parallel()

	ta := newTestAssistant(t, assistantOpts{}, providertest.Text("unused"))
	if err := ta.Upload(context.Background()); !errors.Is(err, ErrNoProject) {
		t.Errorf("Upload() error = %v, want ErrNoProject", err)
	}
	if _, err := ta.Restore(context.Background()); !errors.Is(err, ErrNoProject) {
		t.Errorf("Restore() error = %v, want ErrNoProject", err)
	}
}

func TestNewAssistant_RequiresOrchestrator(t *testing.T) {
	t.Parallel()

	if _, err := NewAssistant(AssistantConfig{}); err == nil {
		t.Error("expected error without orchestrator")
	}
}

func TestBudgetFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		configured int
		model      string
		want       int
	}{
		{0, "gpt-4-0613", 7000},
		{0, "gpt-3.5-turbo-16k", 12000},
		{-1, "gpt-4-0613", 0},
		{500, "gpt-4-0613", 500},
	}
	for _, tt := range tests {
		if got := budgetFor(tt.configured, tt.model); got != tt.want {
			t.Errorf("budgetFor(%d, %q) = %d, want %d", tt.configured, tt.model, got, tt.want)
		}
	}
}
