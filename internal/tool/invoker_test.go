package tool_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/tool"
	"github.com/flemzord/mategen/internal/tool/tooltest"
)

func divideTool() *tooltest.MockTool {
	return &tooltest.MockTool{
		NameFunc: func() string { return "divide" },
		ExecuteFunc: func(_ context.Context, args map[string]any, _ tool.Env) (string, error) {
			a, err := tool.NumberArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := tool.NumberArg(args, "b")
			if err != nil {
				return "", err
			}
			if b == 0 {
				return "", errors.New("division by zero")
			}
			return strconv.FormatFloat(a/b, 'f', -1, 64), nil
		},
	}
}

func newInvoker(t *testing.T, tools ...tool.Tool) *tool.Invoker {
	t.Helper()
	r := tool.NewRegistry(nil)
	for _, tl := range tools {
		if err := r.Register(context.Background(), tl, nil); err != nil {
			t.Fatalf("Register(%s) error = %v", tl.Name(), err)
		}
	}
	return tool.NewInvoker(tool.InvokerConfig{Registry: r, Workdir: t.TempDir()})
}

func TestInvoke_Success(t *testing.T) {
	t.Parallel()

	inv := newInvoker(t, tooltest.SimpleTool("get_count", "42"))
	msg, err := inv.Invoke(context.Background(), provider.ToolCall{
		ID: "call_1", Name: "get_count", Arguments: json.RawMessage(`{"table":"users"}`),
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if msg.Role != provider.RoleTool {
		t.Errorf("Role = %q, want tool", msg.Role)
	}
	if msg.Name != "get_count" || msg.ToolCallID != "call_1" {
		t.Errorf("Name = %q, ToolCallID = %q", msg.Name, msg.ToolCallID)
	}
	if msg.Content != "42" {
		t.Errorf("Content = %q, want 42", msg.Content)
	}
}

func TestInvoke_DivisionByZeroBecomesErrorResult(t *testing.T) {
	t.Parallel()

	inv := newInvoker(t, divideTool())
	msg, err := inv.Invoke(context.Background(), provider.ToolCall{
		Name: "divide", Arguments: json.RawMessage(`{"a":1,"b":0}`),
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v, want nil", err)
	}
	want := tool.ErrorPrefix + "division by zero"
	if msg.Content != want {
		t.Errorf("Content = %q, want %q", msg.Content, want)
	}
	if !strings.Contains(msg.Content, "error") {
		t.Error("error result does not contain the word error")
	}
}

func TestInvoke_UnknownToolBecomesErrorResult(t *testing.T) {
	t.Parallel()

	inv := newInvoker(t)
	msg, err := inv.Invoke(context.Background(), provider.ToolCall{Name: "nope", Arguments: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.HasPrefix(msg.Content, tool.ErrorPrefix) || !strings.Contains(msg.Content, "tool not found") {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestInvoke_PanicBecomesErrorResult(t *testing.T) {
	t.Parallel()

	mt := &tooltest.MockTool{
		NameFunc: func() string { return "boom" },
		ExecuteFunc: func(context.Context, map[string]any, tool.Env) (string, error) {
			panic("kaboom")
		},
	}
	inv := newInvoker(t, mt)
	msg, err := inv.Invoke(context.Background(), provider.ToolCall{Name: "boom"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(msg.Content, "kaboom") {
		t.Errorf("Content = %q, want the panic value", msg.Content)
	}
}

func TestInvoke_ArgumentParseFailure(t *testing.T) {
	t.Parallel()

	mt := tooltest.SimpleTool("get_count", "1")
	inv := newInvoker(t, mt)

	deep := `{"a":` + strings.Repeat("[", 40) + strings.Repeat("]", 40) + `}`
	for _, raw := range []string{`{"table":`, `[1,2]`, `"text"`, `null`, deep} {
		_, err := inv.Invoke(context.Background(), provider.ToolCall{Name: "get_count", Arguments: json.RawMessage(raw)})
		if !errors.Is(err, tool.ErrArgumentParse) {
			t.Errorf("Invoke(%s) error = %v, want ErrArgumentParse", raw, err)
		}
	}
	if n := len(mt.ExecuteCalls()); n != 0 {
		t.Errorf("tool executed %d times on bad arguments", n)
	}
}

func TestInvoke_InjectsEnv(t *testing.T) {
	t.Parallel()

	var gotEnv tool.Env
	mt := &tooltest.MockTool{
		NameFunc: func() string { return "peek" },
		ExecuteFunc: func(_ context.Context, _ map[string]any, env tool.Env) (string, error) {
			gotEnv = env
			env.Vars.Set("df", []int{1, 2})
			return "ok", nil
		},
	}
	vars := tool.NewVars()
	r := tool.NewRegistry(nil)
	if err := r.Register(context.Background(), mt, nil); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	inv := tool.NewInvoker(tool.InvokerConfig{Registry: r, Workdir: dir, Vars: vars})

	if _, err := inv.Invoke(context.Background(), provider.ToolCall{Name: "peek"}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if gotEnv.Workdir != dir || gotEnv.Logger == nil {
		t.Errorf("Env = %+v", gotEnv)
	}
	if _, ok := vars.Get("df"); !ok {
		t.Error("variable set by the tool is not visible in the shared space")
	}
}

func TestInvoke_Audit(t *testing.T) {
	t.Parallel()

	var events []security.AuditEvent
	var buf bytes.Buffer
	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		Writer:  &buf,
		OnEvent: func(ev security.AuditEvent) { events = append(events, ev) },
	})

	r := tool.NewRegistry(nil)
	if err := r.Register(context.Background(), divideTool(), nil); err != nil {
		t.Fatal(err)
	}
	inv := tool.NewInvoker(tool.InvokerConfig{Registry: r, Audit: audit})

	if _, err := inv.Invoke(context.Background(), provider.ToolCall{Name: "divide", Arguments: json.RawMessage(`{"a":1,"b":0}`)}); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d audit events, want 2", len(events))
	}
	if events[0].Type != security.EventToolCall || events[1].Type != security.EventToolResult {
		t.Errorf("event types = %q, %q", events[0].Type, events[1].Type)
	}
	if events[1].Metadata["is_error"] != "true" {
		t.Errorf("is_error = %q, want true", events[1].Metadata["is_error"])
	}
	if buf.Len() == 0 {
		t.Error("audit writer received nothing")
	}
}

func TestInvoke_RedactsOutput(t *testing.T) {
	t.Parallel()

	const dsn = "postgres://analyst:hunter2hunter2@db/churn"
	creds := security.NewCredentialStore()
	creds.Set("SQL_DSN", dsn)
	redactor := security.NewRedactor()
	redactor.SyncCredentials(creds)

	var audited string
	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(ev security.AuditEvent) {
			if ev.Type == security.EventToolResult {
				audited = ev.Detail
			}
		},
	})

	r := tool.NewRegistry(nil)
	leaky := tooltest.FailingTool("sql_inter", errors.New("connect "+dsn+": refused"))
	if err := r.Register(context.Background(), leaky, nil); err != nil {
		t.Fatal(err)
	}
	inv := tool.NewInvoker(tool.InvokerConfig{Registry: r, Audit: audit, Redactor: redactor})

	msg, err := inv.Invoke(context.Background(), provider.ToolCall{Name: "sql_inter", Arguments: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(msg.Content, "hunter2hunter2") || !strings.Contains(msg.Content, security.RedactPlaceholder) {
		t.Errorf("content = %q, want the DSN redacted", msg.Content)
	}
	if !strings.HasPrefix(msg.Content, tool.ErrorPrefix) {
		t.Errorf("content = %q, want error prefix", msg.Content)
	}
	if strings.Contains(audited, "hunter2hunter2") {
		t.Errorf("audit detail leaked the DSN: %q", audited)
	}
}
