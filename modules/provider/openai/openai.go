// Package openai implements the provider.openai module, a chat-completions
// provider with function calling built on github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"log/slog"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/security"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Provider = (*Provider)(nil)
	_ core.Module       = (*Provider)(nil)
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
)

// Provider implements provider.Provider against the OpenAI Chat Completions API.
type Provider struct {
	config        Config
	logger        *slog.Logger
	client        *goopenai.Client
	contextWindow int
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger
	p.config.defaults()
	p.config.resolveKey()
	p.init(&http.Client{
		Timeout:   p.config.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})

	if svc, ok := ctx.GetService(security.CredentialsServiceName); ok {
		if creds, ok := svc.(*security.CredentialStore); ok {
			creds.Set(credentialAPIKey, p.config.APIKey)
		}
	}

	ctx.RegisterService("provider.openai", p)
	ctx.RegisterService(provider.ServiceName, p)
	return nil
}

// init builds the API client around httpClient.
func (p *Provider) init(httpClient *http.Client) {
	cfg := goopenai.DefaultConfig(p.config.APIKey)
	cfg.BaseURL = p.config.BaseURL
	cfg.OrgID = p.config.Organization
	cfg.HTTPClient = httpClient
	p.client = goopenai.NewClientWithConfig(cfg)
	p.contextWindow = p.config.window()
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string { return p.config.Model }

// ContextWindowSize implements provider.Provider.
func (p *Provider) ContextWindowSize() int { return p.contextWindow }

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req))
	if err != nil {
		return provider.CompletionResponse{}, mapError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return provider.CompletionResponse{}, provider.ErrEmptyResponse
	}

	msg, dropped := fromChoice(resp.Choices[0])
	if dropped > 0 && p.logger != nil {
		p.logger.Debug("ignoring extra tool calls", "kept", msg.ToolCall.Name, "dropped", dropped)
	}

	return provider.CompletionResponse{
		Message:      msg,
		FinishReason: fromFinishReason(resp.Choices[0].FinishReason),
		Usage: provider.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// buildRequest merges request-level overrides with config defaults.
func (p *Provider) buildRequest(req provider.CompletionRequest) goopenai.ChatCompletionRequest {
	cr := goopenai.ChatCompletionRequest{
		Model:    p.config.Model,
		Messages: toMessages(req.Messages),
	}
	if req.Model != "" {
		cr.Model = req.Model
	}
	if len(req.Tools) > 0 {
		cr.Tools = toTools(req.Tools)
		cr.ToolChoice = toToolChoice(req.ToolChoice)
	}

	switch {
	case req.MaxTokens > 0:
		cr.MaxTokens = req.MaxTokens
	case p.config.MaxTokens > 0:
		cr.MaxTokens = p.config.MaxTokens
	}

	switch {
	case req.Temperature != nil:
		cr.Temperature = float32(*req.Temperature)
	case p.config.Temperature != nil:
		cr.Temperature = float32(*p.config.Temperature)
	}
	return cr
}
