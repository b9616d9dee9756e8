package gateway

import (
	"context"

	"github.com/flemzord/mategen/internal/provider"
)

// AssistantServiceName is the service key under which the running assistant
// is registered for the gateway to discover.
const AssistantServiceName = "assistant"

// Assistant is the view of a running assistant the gateway serves.
// Implementations must be safe for concurrent use.
type Assistant interface {
	// Status returns a point-in-time view of the conversation.
	Status() Status
	// Transcript returns the messages currently held in history.
	Transcript() []provider.Message
	// Reset clears the conversation history.
	Reset(ctx context.Context) error
}

// Status is a serializable point-in-time view of an assistant.
type Status struct {
	Model     string   `json:"model"`
	Developer bool     `json:"developer_mode"`
	Enhanced  bool     `json:"enhanced_mode"`
	Messages  int      `json:"messages"`
	Tokens    int      `json:"tokens"`
	Budget    int      `json:"budget"`
	Tools     []string `json:"tools"`
	Project   string   `json:"project,omitempty"`
	Part      string   `json:"part,omitempty"`
}
