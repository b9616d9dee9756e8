package security

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// AuditServiceName is the AppContext service key of the process audit logger.
const AuditServiceName = "security.audit"

// EventType categorizes audit events.
type EventType string

// Audit event types.
const (
	EventMessage      EventType = "message"
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
	EventAuthSuccess  EventType = "auth_success"
	EventAuthFailure  EventType = "auth_failure"
	EventHistoryReset EventType = "history_reset"
	EventUpload       EventType = "upload"
	EventRestore      EventType = "restore"
)

// AuditEvent is one line of the audit log. Project and Part identify the
// persisted transcript the event belongs to, when there is one.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Project   string            `json:"project,omitempty"`
	Part      string            `json:"part,omitempty"`
	ToolName  string            `json:"tool_name,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditLoggerConfig configures the audit logger.
type AuditLoggerConfig struct {
	// Writer receives one JSON object per event. Nil keeps events in
	// process (OnEvent only).
	Writer io.Writer

	// Redactor scrubs Detail and Metadata values.
	Redactor *Redactor

	// OnEvent is called for every event, after redaction.
	OnEvent func(AuditEvent)

	// Now defaults to time.Now.
	Now func() time.Time
}

// AuditLogger writes audit events as JSON lines. A nil *AuditLogger
// discards events, so components can log unconditionally.
type AuditLogger struct {
	mu       sync.Mutex
	enc      *json.Encoder
	closer   io.Closer
	redactor *Redactor
	onEvent  func(AuditEvent)
	now      func() time.Time

	writeErrors atomic.Int64
}

// NewAuditLogger creates an audit logger.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	l := &AuditLogger{
		redactor: cfg.Redactor,
		onEvent:  cfg.OnEvent,
		now:      cfg.Now,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if cfg.Writer != nil {
		l.enc = json.NewEncoder(cfg.Writer)
	}
	return l
}

// OpenAuditFile creates an audit logger appending to path, creating the
// file and its directory with owner-only permissions. Close releases it.
func OpenAuditFile(path string, redactor *Redactor) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", path, err)
	}
	l := NewAuditLogger(AuditLoggerConfig{Writer: f, Redactor: redactor})
	l.closer = f
	return l, nil
}

// Log records event, stamping its time. The caller's Metadata map is not
// modified.
func (l *AuditLogger) Log(event AuditEvent) {
	if l == nil {
		return
	}
	event.Timestamp = l.now()
	event.Detail = l.redactor.Redact(event.Detail)
	if len(event.Metadata) > 0 {
		md := maps.Clone(event.Metadata)
		for k, v := range md {
			md[k] = l.redactor.Redact(v)
		}
		event.Metadata = md
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.onEvent != nil {
		l.onEvent(event)
	}
	if l.enc != nil {
		if err := l.enc.Encode(event); err != nil {
			l.writeErrors.Add(1)
		}
	}
}

// WriteErrors returns the number of events that could not be written.
func (l *AuditLogger) WriteErrors() int64 {
	if l == nil {
		return 0
	}
	return l.writeErrors.Load()
}

// Close releases the file opened by OpenAuditFile. Further events are
// only dispatched to OnEvent.
func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enc = nil
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}
