package provider

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrProviderDown indicates the provider is unreachable or temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrEmptyResponse indicates the provider answered without any choice.
	ErrEmptyResponse = errors.New("provider returned no choices")
)

// IsTransient reports whether err is a connectivity failure that can be
// recovered by waiting, switching model, or asking again.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}

// Wait pauses d before a retry. It returns early with ctx's error when ctx
// is done first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
