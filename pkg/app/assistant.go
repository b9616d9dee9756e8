package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/flemzord/mategen/internal/conversation"
	"github.com/flemzord/mategen/internal/gateway"
	"github.com/flemzord/mategen/internal/orchestrator"
	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/store"
	"github.com/flemzord/mategen/internal/telemetry"
	"github.com/flemzord/mategen/internal/tool"
)

// ErrNoProject is returned by Upload and Restore when no project is bound.
var ErrNoProject = errors.New("app: no project configured")

// ErrNoAnswer is returned by Ask when the turn ended without an assistant
// text reply, for example when a budget overflow cleared the history.
var ErrNoAnswer = errors.New("app: no answer produced")

// AssistantConfig configures an Assistant.
type AssistantConfig struct {
	Orchestrator *orchestrator.Orchestrator

	// Registry lists the tools offered to the model. May be nil.
	Registry *tool.Registry

	// System holds the system messages kept across resets.
	System []string

	// Budget is the history token budget. Zero or negative is unbounded.
	Budget  int
	Counter conversation.TokenCounter

	// Project binds transcript persistence. Nil disables Upload and Restore.
	Project *store.Project

	Audit   *security.AuditLogger
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Assistant is the conversation facade: it owns one history and answers
// questions through the orchestrator. Turns are serialized; Status and
// Transcript may be called concurrently with a running turn.
type Assistant struct {
	orch     *orchestrator.Orchestrator
	registry *tool.Registry
	system   []string
	budget   int
	counter  conversation.TokenCounter
	project  *store.Project
	audit    *security.AuditLogger
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// turn serializes Ask, Reset, Upload and Restore.
	turn    sync.Mutex
	history *conversation.History

	// mu guards snapshot, refreshed after every history change.
	mu       sync.RWMutex
	snapshot []provider.Message
	tokens   int
}

var _ gateway.Assistant = (*Assistant)(nil)

// NewAssistant creates an Assistant with a history holding only the system
// messages.
func NewAssistant(cfg AssistantConfig) (*Assistant, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("app: orchestrator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	a := &Assistant{
		orch:     cfg.Orchestrator,
		registry: cfg.Registry,
		system:   slices.Clone(cfg.System),
		budget:   cfg.Budget,
		counter:  cfg.Counter,
		project:  cfg.Project,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	h, err := a.newHistory()
	if err != nil {
		return nil, err
	}
	a.history = h
	a.publish()
	return a, nil
}

func (a *Assistant) newHistory() (*conversation.History, error) {
	return conversation.New(conversation.Config{
		System:  a.system,
		Budget:  a.budget,
		Counter: a.counter,
		Logger:  a.logger,
		OnEvict: a.metrics.Evicted,
	})
}

// Ask appends question to the history, runs one orchestrated turn and
// returns the assistant's final text.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	a.turn.Lock()
	defer a.turn.Unlock()
	defer a.publish()

	a.record(security.AuditEvent{Type: security.EventMessage, Detail: question})
	a.history.Append(provider.Message{Role: provider.RoleUser, Content: question})

	if err := a.orch.Respond(ctx, a.history); err != nil {
		return "", err
	}

	last, ok := a.history.Last()
	if !ok || last.Role != provider.RoleAssistant || last.IsToolCall() {
		return "", ErrNoAnswer
	}
	return last.Content, nil
}

// Asker drives a multi-turn chat: it supplies questions and shows answers.
type Asker interface {
	// NextQuestion returns the next question, or ok=false to end the chat.
	NextQuestion(ctx context.Context) (question string, ok bool, err error)
	Answer(text string)
}

// Chat asks first (when non-empty) and then every question asker supplies
// until it ends the chat. A human abort ends the chat without error.
func (a *Assistant) Chat(ctx context.Context, first string, asker Asker) error {
	question := first
	for {
		if question == "" {
			q, ok, err := asker.NextQuestion(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			question = q
		}

		answer, err := a.Ask(ctx, question)
		switch {
		case errors.Is(err, orchestrator.ErrAborted):
			return nil
		case errors.Is(err, ErrNoAnswer):
			a.logger.Warn("turn ended without an answer")
		case err != nil:
			return err
		default:
			asker.Answer(answer)
		}
		question = ""
	}
}

// Reset discards the conversation, keeping the system messages.
func (a *Assistant) Reset(_ context.Context) error {
	a.turn.Lock()
	defer a.turn.Unlock()

	h, err := a.newHistory()
	if err != nil {
		return err
	}
	a.history = h
	a.publish()
	a.record(security.AuditEvent{Type: security.EventHistoryReset})
	return nil
}

// Upload appends the non-system messages to the project part.
func (a *Assistant) Upload(ctx context.Context) error {
	if a.project == nil {
		return ErrNoProject
	}
	a.turn.Lock()
	defer a.turn.Unlock()

	msgs := a.history.History()
	if err := a.project.AppendMessages(ctx, msgs); err != nil {
		return fmt.Errorf("app: upload: %w", err)
	}
	a.record(security.AuditEvent{
		Type:   security.EventUpload,
		Detail: fmt.Sprintf("%d messages", len(msgs)),
	})
	return nil
}

// Restore replaces the conversation with the transcript stored in the
// project part. Messages are appended through the budget, so an oversized
// transcript keeps only its newest messages.
func (a *Assistant) Restore(ctx context.Context) (int, error) {
	if a.project == nil {
		return 0, ErrNoProject
	}
	a.turn.Lock()
	defer a.turn.Unlock()

	msgs, err := a.project.Restore(ctx)
	if err != nil {
		return 0, fmt.Errorf("app: restore: %w", err)
	}
	h, err := a.newHistory()
	if err != nil {
		return 0, err
	}
	h.Append(msgs...)
	a.history = h
	a.publish()

	a.record(security.AuditEvent{
		Type:   security.EventRestore,
		Detail: fmt.Sprintf("%d messages", len(msgs)),
	})
	return len(msgs), nil
}

// Project returns the bound project, or nil.
func (a *Assistant) Project() *store.Project { return a.project }

// Status implements gateway.Assistant.
func (a *Assistant) Status() gateway.Status {
	developer, enhanced := a.orch.Modes()
	s := gateway.Status{
		Model:     a.orch.Model(),
		Developer: developer,
		Enhanced:  enhanced,
		Budget:    a.budget,
	}
	if a.registry != nil {
		s.Tools = a.registry.Names()
	}
	if a.project != nil {
		s.Project = a.project.Name
		s.Part = a.project.Part
	}

	a.mu.RLock()
	s.Messages = len(a.snapshot)
	s.Tokens = a.tokens
	a.mu.RUnlock()
	return s
}

// Transcript implements gateway.Assistant.
func (a *Assistant) Transcript() []provider.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]provider.Message, len(a.snapshot))
	for i, m := range a.snapshot {
		out[i] = m.Clone()
	}
	return out
}

// publish refreshes the snapshot read by Status and Transcript. Callers
// hold turn.
func (a *Assistant) publish() {
	msgs := a.history.Messages()
	tokens := a.history.Tokens()

	a.mu.Lock()
	a.snapshot = msgs
	a.tokens = tokens
	a.mu.Unlock()
}

func (a *Assistant) record(ev security.AuditEvent) {
	if a.audit == nil {
		return
	}
	if a.project != nil {
		ev.Project = a.project.Name
		ev.Part = a.project.Part
	}
	a.audit.Log(ev)
}
