// Package conversation holds the token-budgeted message history that is
// sent to the model on every call.
//
// A History keeps system messages as a fixed prefix and every other message
// in an ordered tail. When a budget is set, appending a message that brings
// the total to or above the budget evicts tail messages oldest first. System
// messages are never evicted by budget pressure.
//
// History is not safe for concurrent use: one conversation is driven by one
// caller at a time.
package conversation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/flemzord/mategen/internal/provider"
)

// Config describes a new History.
type Config struct {
	// System is the list of system contents, one message per entry.
	System []string

	// Question is the optional first user message.
	Question string

	// Budget is the token threshold. Zero means unbounded.
	Budget int

	// Counter computes token costs. Defaults to a CharCounter.
	Counter TokenCounter

	// Logger receives budget warnings. Defaults to a discarding logger.
	Logger *slog.Logger

	// OnEvict, when set, is called with the number of messages removed by
	// each automatic eviction. Copies do not inherit it.
	OnEvict func(n int)
}

type entry struct {
	msg    provider.Message
	tokens int
}

// History is an ordered, token-accounted list of messages.
type History struct {
	system  []entry
	tail    []entry
	tokens  int
	budget  int
	counter TokenCounter
	logger  *slog.Logger
	onEvict func(n int)

	exceeded bool
}

// New builds a History from cfg.
//
// When the system contents alone reach the budget they are discarded and a
// warning is logged. When the first question then brings the total to the
// budget, everything is cleared and ErrBudgetExceeded is returned together
// with the (empty, usable) history: an oversized question invalidates the
// whole conversation rather than being truncated.
func New(cfg Config) (*History, error) {
	h := &History{
		budget:  max(cfg.Budget, 0),
		counter: cfg.Counter,
		logger:  cfg.Logger,
		onEvict: cfg.OnEvict,
	}
	if h.counter == nil {
		h.counter = NewCharCounter(0)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}

	for _, content := range cfg.System {
		e := h.newEntry(provider.Message{Role: provider.RoleSystem, Content: content})
		h.system = append(h.system, e)
		h.tokens += e.tokens
	}
	if h.bounded() && h.tokens >= h.budget {
		h.logger.Warn("system messages exceed the token budget and were discarded",
			"tokens", h.tokens, "budget", h.budget)
		h.system = nil
		h.tokens = 0
	}

	if cfg.Question == "" {
		return h, nil
	}

	q := h.newEntry(provider.Message{Role: provider.RoleUser, Content: cfg.Question})
	h.tail = append(h.tail, q)
	h.tokens += q.tokens
	if h.bounded() && h.tokens >= h.budget {
		total := h.tokens
		h.Clear()
		h.exceeded = true
		h.logger.Warn("first question exceeds the token budget, conversation cleared",
			"tokens", total, "budget", h.budget)
		return h, fmt.Errorf("%w: %d tokens, budget %d", ErrBudgetExceeded, total, h.budget)
	}
	return h, nil
}

func (h *History) newEntry(m provider.Message) entry {
	m = m.Clone()
	return entry{msg: m, tokens: MessageTokens(h.counter, m)}
}

func (h *History) bounded() bool { return h.budget > 0 }

// Budget returns the token budget (0 when unbounded).
func (h *History) Budget() int { return h.budget }

// Tokens returns the cumulative token count of every held message.
func (h *History) Tokens() int { return h.tokens }

// Exceeded reports whether construction cleared the history because the
// first question did not fit the budget.
func (h *History) Exceeded() bool { return h.exceeded }

// Len returns the number of non-system messages.
func (h *History) Len() int { return len(h.tail) }

// Counter returns the token counter used by the history.
func (h *History) Counter() TokenCounter { return h.counter }

// Messages returns the active view: system messages followed by the
// non-system messages, in insertion order. The slice is a copy.
func (h *History) Messages() []provider.Message {
	out := make([]provider.Message, 0, len(h.system)+len(h.tail))
	for _, e := range h.system {
		out = append(out, e.msg.Clone())
	}
	for _, e := range h.tail {
		out = append(out, e.msg.Clone())
	}
	return out
}

// System returns copies of the system messages.
func (h *History) System() []provider.Message {
	out := make([]provider.Message, len(h.system))
	for i, e := range h.system {
		out[i] = e.msg.Clone()
	}
	return out
}

// History returns copies of the non-system messages.
func (h *History) History() []provider.Message {
	out := make([]provider.Message, len(h.tail))
	for i, e := range h.tail {
		out[i] = e.msg.Clone()
	}
	return out
}

// Last returns the most recent non-system message.
func (h *History) Last() (provider.Message, bool) {
	if len(h.tail) == 0 {
		return provider.Message{}, false
	}
	return h.tail[len(h.tail)-1].msg.Clone(), true
}

// Append adds messages in order. System-role messages join the system
// prefix; all others join the tail. Each message's cost is computed with
// the counter, then automatic eviction runs.
func (h *History) Append(msgs ...provider.Message) {
	for _, m := range msgs {
		e := h.newEntry(m)
		if m.Role == provider.RoleSystem {
			h.system = append(h.system, e)
		} else {
			h.tail = append(h.tail, e)
		}
		h.tokens += e.tokens
		h.Evict()
	}
}

// Merge appends every message of other, in other's active order.
func (h *History) Merge(other *History) {
	if other == nil {
		return
	}
	h.Append(other.Messages()...)
}

// Evict removes the oldest non-system messages while the total is at or
// above the budget. It returns the number of messages removed.
func (h *History) Evict() int {
	if !h.bounded() {
		return 0
	}
	n := 0
	for h.tokens >= h.budget && len(h.tail) > 0 {
		h.tokens -= h.tail[0].tokens
		h.tail[0] = entry{}
		h.tail = h.tail[1:]
		n++
	}
	if n > 0 {
		h.logger.Debug("evicted messages under budget pressure",
			"evicted", n, "tokens", h.tokens, "budget", h.budget)
		if h.onEvict != nil {
			h.onEvict(n)
		}
	}
	return n
}

// Remove deletes one non-system message regardless of the budget.
// Negative indices count from the most recent message (-1 is the newest).
func (h *History) Remove(index int) (provider.Message, error) {
	i := index
	if i < 0 {
		i += len(h.tail)
	}
	if i < 0 || i >= len(h.tail) {
		return provider.Message{}, fmt.Errorf("%w: %d (history has %d messages)", ErrInvalidIndex, index, len(h.tail))
	}
	e := h.tail[i]
	h.tail = append(h.tail[:i], h.tail[i+1:]...)
	h.tokens -= e.tokens
	return e.msg, nil
}

// Pop removes the n most recent non-system messages.
func (h *History) Pop(n int) error {
	if n < 0 || n > len(h.tail) {
		return fmt.Errorf("%w: cannot pop %d of %d messages", ErrInvalidIndex, n, len(h.tail))
	}
	for range n {
		if _, err := h.Remove(-1); err != nil {
			return err
		}
	}
	return nil
}

// Truncate drops non-system messages beyond the first n.
func (h *History) Truncate(n int) {
	if n < 0 || n >= len(h.tail) {
		return
	}
	_ = h.Pop(len(h.tail) - n)
}

// Copy returns a fully independent deep copy. The copy's token count is
// recomputed from its messages and equals the original's.
func (h *History) Copy() *History {
	cp := &History{
		budget:  h.budget,
		counter: h.counter,
		logger:  h.logger,
	}
	for _, e := range h.system {
		ne := cp.newEntry(e.msg)
		cp.system = append(cp.system, ne)
		cp.tokens += ne.tokens
	}
	for _, e := range h.tail {
		ne := cp.newEntry(e.msg)
		cp.tail = append(cp.tail, ne)
		cp.tokens += ne.tokens
	}
	return cp
}

// ReplaceWith makes h hold exactly the messages of other. Both histories
// remain independent.
func (h *History) ReplaceWith(other *History) {
	cp := other.Copy()
	h.system = cp.system
	h.tail = cp.tail
	h.tokens = cp.tokens
}

// AddSystem appends system messages, keeping them ahead of the tail in the
// active view, then runs automatic eviction.
func (h *History) AddSystem(contents ...string) {
	for _, c := range contents {
		e := h.newEntry(provider.Message{Role: provider.RoleSystem, Content: c})
		h.system = append(h.system, e)
		h.tokens += e.tokens
	}
	h.Evict()
}

// DeleteSystem removes every system message.
func (h *History) DeleteSystem() {
	for _, e := range h.system {
		h.tokens -= e.tokens
	}
	h.system = nil
}

// StripToolMessages removes every tool result and every assistant message
// carrying a tool call. It returns the number of messages removed.
func (h *History) StripToolMessages() int {
	n := 0
	for i := len(h.tail) - 1; i >= 0; i-- {
		m := h.tail[i].msg
		if m.Role == provider.RoleTool || m.IsToolCall() {
			if _, err := h.Remove(i); err == nil {
				n++
			}
		}
	}
	return n
}

// LastUserIndex returns the tail index of the most recent user message.
func (h *History) LastUserIndex() (int, bool) {
	for i := len(h.tail) - 1; i >= 0; i-- {
		if h.tail[i].msg.Role == provider.RoleUser {
			return i, true
		}
	}
	return 0, false
}

// SetContent rewrites the content of the tail message at index i and
// re-accounts its token cost. Negative indices count from the newest.
func (h *History) SetContent(index int, content string) error {
	i := index
	if i < 0 {
		i += len(h.tail)
	}
	if i < 0 || i >= len(h.tail) {
		return fmt.Errorf("%w: %d (history has %d messages)", ErrInvalidIndex, index, len(h.tail))
	}
	e := &h.tail[i]
	e.msg.Content = content
	h.tokens -= e.tokens
	e.tokens = MessageTokens(h.counter, e.msg)
	h.tokens += e.tokens
	h.Evict()
	return nil
}

// SetLastUserContent replaces the content of the most recent user message.
// It reports false when the history holds no user message.
func (h *History) SetLastUserContent(content string) bool {
	i, ok := h.LastUserIndex()
	if !ok {
		return false
	}
	return h.SetContent(i, content) == nil
}

// LastUser returns the most recent user message.
func (h *History) LastUser() (provider.Message, bool) {
	i, ok := h.LastUserIndex()
	if !ok {
		return provider.Message{}, false
	}
	return h.tail[i].msg.Clone(), true
}

// Clear drops every message, system and non-system.
func (h *History) Clear() {
	h.system = nil
	h.tail = nil
	h.tokens = 0
}

// String renders the active view for debugging.
func (h *History) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "History(%d tokens, budget %d)\n", h.tokens, h.budget)
	for _, m := range h.Messages() {
		content := m.Content
		if m.IsToolCall() {
			content = m.ToolCall.Name + string(m.ToolCall.Arguments)
		}
		fmt.Fprintf(&b, "  [%s] %s\n", m.Role, content)
	}
	return b.String()
}
