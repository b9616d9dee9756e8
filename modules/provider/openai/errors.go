package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flemzord/mategen/internal/provider"
)

// errAuth is a non-retryable authentication error.
var errAuth = errors.New("provider.openai: authentication failed")

// mapError translates a go-openai client error into the provider sentinel
// errors. When ctx itself is done the context error is returned unchanged
// so callers stop instead of retrying.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return mapStatus(apiErr.HTTPStatusCode, fmt.Sprint(apiErr.Code), apiErr.Message, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return mapStatus(reqErr.HTTPStatusCode, "", "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	return fmt.Errorf("provider.openai: %w", err)
}

func mapStatus(status int, code, msg string, err error) error {
	lower := strings.ToLower(code + " " + msg)
	switch {
	case strings.Contains(lower, "context_length") || strings.Contains(lower, "maximum context length"):
		return fmt.Errorf("%w: %w", provider.ErrContextLength, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", provider.ErrRateLimit, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", errAuth, err)
	case status == http.StatusRequestTimeout || status >= 500:
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	default:
		return fmt.Errorf("provider.openai: HTTP %d: %w", status, err)
	}
}
