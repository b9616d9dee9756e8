// Package provider defines the model-call collaborator: the message model
// exchanged with a hosted chat-completion API, the Provider interface, and
// the sentinel errors that classify transient failures.
package provider

import "context"

// Provider is the interface for communicating with a chat-completion model.
// Concrete implementations live in separate packages (e.g. modules/provider/openai)
// and typically also implement core.Module for lifecycle management.
type Provider interface {
	// Complete sends the conversation and returns one assistant message.
	// Transient connectivity failures wrap ErrRateLimit or ErrProviderDown.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ContextWindowSize returns the maximum context window in tokens.
	ContextWindowSize() int

	// ModelName returns the identifier of the default model.
	ModelName() string
}

// ServiceName is the AppContext service key under which provider modules
// publish themselves.
const ServiceName = "provider"
