package security

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, level slog.Level, kvs ...string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(inner, redactorWith(t, kvs...))), &buf
}

func TestRedactingHandler(t *testing.T) {
	t.Parallel()

	const secret = "super-secret-value"

	tests := []struct {
		name string
		log  func(*slog.Logger)
	}{
		{"message", func(l *slog.Logger) { l.Info("calling with " + secret) }},
		{"pattern in message", func(l *slog.Logger) { l.Info("key sk-abcdefghijklmnopqrstuvwxyz") }},
		{"string attr", func(l *slog.Logger) { l.Info("call", "token", secret) }},
		{"error attr", func(l *slog.Logger) { l.Warn("model call failed", "error", errors.New("401: "+secret)) }},
		{"with attrs", func(l *slog.Logger) { l.With("dsn", "postgres://u:"+secret+"@h/db").Info("query") }},
		{"group attr", func(l *slog.Logger) { l.Info("tool", slog.Group("args", slog.String("code", secret))) }},
		{"with group", func(l *slog.Logger) { l.WithGroup("tool").Info("result", "content", secret) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, buf := newTestLogger(t, slog.LevelDebug, "DB_PASSWORD", secret)
			tt.log(logger)

			out := buf.String()
			if strings.Contains(out, secret) || strings.Contains(out, "sk-abcdefghijklmnopqrstuvwxyz") {
				t.Errorf("secret in log output: %s", out)
			}
			if !strings.Contains(out, RedactPlaceholder) {
				t.Errorf("placeholder missing: %s", out)
			}
		})
	}
}

func TestRedactingHandler_KeepsStructure(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(t, slog.LevelDebug)
	logger.WithGroup("tool").With("name", "sql_inter").Info("executed", "rows", 3, "ok", true)

	out := buf.String()
	for _, want := range []string{"msg=executed", "tool.name=sql_inter", "tool.rows=3", "tool.ok=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(t, slog.LevelWarn)
	if logger.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("disabled record written: %s", buf.String())
	}
}
