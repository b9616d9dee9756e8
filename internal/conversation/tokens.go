package conversation

import (
	"strings"
	"sync"

	"github.com/flemzord/mategen/internal/provider"
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter returns the number of tokens text encodes to.
type TokenCounter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to TokenCounter.
type CounterFunc func(text string) int

// Count implements TokenCounter.
func (f CounterFunc) Count(text string) int { return f(text) }

// CharCounter approximates tokens with a characters-per-token ratio.
// A ratio of ~4 works well for English text.
type CharCounter struct {
	CharsPerToken float64
}

// NewCharCounter creates a CharCounter. A ratio <= 0 defaults to 4.
func NewCharCounter(charsPerToken float64) *CharCounter {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharCounter{CharsPerToken: charsPerToken}
}

// Count implements TokenCounter. Non-empty text always costs at least one token.
func (c *CharCounter) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text))/c.CharsPerToken) + 1
}

// DefaultEncoding is the BPE encoding used by the GPT-3.5 and GPT-4 families.
const DefaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding (DefaultEncoding when empty).
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

// NewCounter returns a TiktokenCounter for encoding, or a CharCounter when
// the encoding cannot be loaded (for example without network access on the
// first run).
func NewCounter(encoding string) TokenCounter {
	c, err := NewTiktokenCounter(encoding)
	if err != nil {
		return NewCharCounter(0)
	}
	return c
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enc.Encode(text, nil, nil))
}

// MessageTokens returns the cost of m: its content plus, for tool calls,
// the tool name and raw arguments.
func MessageTokens(counter TokenCounter, m provider.Message) int {
	n := counter.Count(m.Content)
	if m.ToolCall != nil {
		n += counter.Count(m.ToolCall.Name)
		n += counter.Count(string(m.ToolCall.Arguments))
	}
	return n
}

// BudgetForModel returns the default token budget for a model name.
// Long-context snapshots get a large budget, older models a conservative one.
func BudgetForModel(model string) int {
	switch {
	case strings.Contains(model, "1106"):
		return 110000
	case strings.Contains(model, "16k"):
		return 12000
	case strings.Contains(model, "4-0613"):
		return 7000
	default:
		return 3000
	}
}
