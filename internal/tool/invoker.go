package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/security"
)

// ErrorPrefix starts the content of every tool-result message produced from
// a failed tool execution.
const ErrorPrefix = "The function encountered an error as follows:"

// ErrorContent renders a failed execution as tool-result content.
func ErrorContent(err error) string {
	return ErrorPrefix + err.Error()
}

// InvokerConfig configures an Invoker.
type InvokerConfig struct {
	Registry *Registry

	// Workdir and Vars are injected into every call's Env.
	Workdir string
	Vars    *Vars

	Logger *slog.Logger

	// Audit, when set, records every call and result.
	Audit *security.AuditLogger

	// Redactor, when set, scrubs credentials from tool output before it
	// becomes a message.
	Redactor *security.Redactor
}

// Invoker executes model tool calls against a Registry.
type Invoker struct {
	registry *Registry
	workdir  string
	vars     *Vars
	logger   *slog.Logger
	audit    *security.AuditLogger
	redactor *security.Redactor
}

// NewInvoker creates an Invoker. A nil Vars gets a fresh space.
func NewInvoker(cfg InvokerConfig) *Invoker {
	if cfg.Vars == nil {
		cfg.Vars = NewVars()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Invoker{
		registry: cfg.Registry,
		workdir:  cfg.Workdir,
		vars:     cfg.Vars,
		logger:   cfg.Logger,
		audit:    cfg.Audit,
		redactor: cfg.Redactor,
	}
}

// Registry returns the registry the invoker resolves tools from.
func (inv *Invoker) Registry() *Registry { return inv.registry }

// Vars returns the shared variable space.
func (inv *Invoker) Vars() *Vars { return inv.vars }

// Invoke runs call and returns the tool-result message. Only argument
// decoding fails hard (ErrArgumentParse); unknown tools, execution errors
// and panics become a result message starting with ErrorPrefix.
func (inv *Invoker) Invoke(ctx context.Context, call provider.ToolCall) (provider.Message, error) {
	args, err := DecodeArguments(call.Arguments)
	if err != nil {
		inv.logger.Warn("tool call arguments rejected", "tool", call.Name, "error", err)
		return provider.Message{}, err
	}

	inv.record(security.AuditEvent{
		Type:     security.EventToolCall,
		ToolName: call.Name,
		Detail:   truncateForAudit(string(call.Arguments)),
	})

	content, execErr := inv.execute(ctx, call.Name, args)
	if execErr != nil {
		content = ErrorContent(execErr)
		inv.logger.Info("tool execution failed", "tool", call.Name, "error", execErr)
	} else {
		inv.logger.Debug("tool executed", "tool", call.Name, "bytes", len(content))
	}
	content = inv.redactor.Redact(content)

	inv.record(security.AuditEvent{
		Type:     security.EventToolResult,
		ToolName: call.Name,
		Detail:   truncateForAudit(content),
		Metadata: map[string]string{"is_error": strconv.FormatBool(execErr != nil)},
	})

	return provider.Message{
		Role:       provider.RoleTool,
		Name:       call.Name,
		Content:    content,
		ToolCallID: call.ID,
	}, nil
}

func (inv *Invoker) execute(ctx context.Context, name string, args map[string]any) (content string, err error) {
	t, err := inv.registry.Resolve(name)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()

	return t.Execute(ctx, args, Env{
		Workdir: inv.workdir,
		Vars:    inv.vars,
		Logger:  inv.logger.With("tool", name),
	})
}

func (inv *Invoker) record(ev security.AuditEvent) {
	if inv.audit != nil {
		inv.audit.Log(ev)
	}
}

// DecodeArguments decodes raw call arguments into an object. Empty input is
// an empty object. Oversized or too deeply nested input is rejected before
// decoding.
func DecodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	if err := security.ValidateArguments(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgumentParse, err)
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgumentParse, err)
	}
	if args == nil {
		return nil, fmt.Errorf("%w: null", ErrArgumentParse)
	}
	return args, nil
}

// maxAuditDetailLen is the maximum length of audit detail strings.
const maxAuditDetailLen = 4096

// truncateForAudit truncates a string to maxAuditDetailLen, appending
// a truncation indicator if the string was shortened.
// It walks back to a valid UTF-8 rune boundary to avoid splitting multi-byte
// characters when the cut falls mid-rune.
func truncateForAudit(s string) string {
	if len(s) <= maxAuditDetailLen {
		return s
	}
	i := maxAuditDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}

// Arg helpers for tool implementations.

// StringArg returns args[key] as a string.
func StringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

// NumberArg returns args[key] as a float64.
func NumberArg(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("argument %q must be a number, got %T", key, v)
	}
}
