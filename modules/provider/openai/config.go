package openai

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	defaultModel     = "gpt-3.5-turbo-16k"
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultKeyEnv    = "OPENAI_API_KEY"
	defaultTimeout   = 60 * time.Second
	credentialAPIKey = "OPENAI_API_KEY"
)

// Config is the provider.openai section of mategen.yaml.
type Config struct {
	APIKey string `yaml:"api_key"`
	// APIKeyEnv names the environment variable read when api_key is empty.
	APIKeyEnv     string        `yaml:"api_key_env"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	Organization  string        `yaml:"organization"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   *float64      `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	ContextWindow int           `yaml:"context_window"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultKeyEnv
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// resolveKey falls back to the environment when no key is configured.
func (c *Config) resolveKey() {
	if c.APIKey == "" && c.APIKeyEnv != "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// window is the context size of the configured model: the explicit
// setting, else the known model table, else 0.
func (c Config) window() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	return knownContextWindows[c.Model]
}

func (c Config) validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("provider.openai: api_key is required (or set $%s)", c.APIKeyEnv))
	}
	if c.window() <= 0 {
		errs = append(errs, fmt.Errorf("provider.openai: context_window must be set for model %q", c.Model))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("provider.openai: timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("provider.openai: max_tokens must be non-negative"))
	}
	if t := c.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("provider.openai: temperature must be in [0, 2], got %g", *t))
	}
	return errors.Join(errs...)
}

// knownContextWindows holds the context size, in tokens, of models the
// provider can size without an explicit context_window.
var knownContextWindows = map[string]int{
	"gpt-3.5-turbo":          16385,
	"gpt-3.5-turbo-16k":      16385,
	"gpt-3.5-turbo-1106":     16385,
	"gpt-3.5-turbo-16k-0613": 16385,
	"gpt-4":                  8192,
	"gpt-4-0613":             8192,
	"gpt-4-1106-preview":     128000,
	"gpt-4-turbo":            128000,
	"gpt-4o":                 128000,
	"gpt-4o-mini":            128000,
	"gpt-4.1":                1047576,
	"gpt-4.1-mini":           1047576,
	"o3-mini":                200000,
}
