package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Metrics toggles the unauthenticated /metrics endpoint. Unset means on.
	Metrics *bool `yaml:"metrics"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

func (c Config) metricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}

// AuthConfig configures authentication for the admin endpoints. Either a
// bearer token, a basic user/password pair, or both.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	// BearerTokenEnv names an environment variable holding the token. It is
	// read at provision time when BearerToken is empty.
	BearerTokenEnv string `yaml:"bearer_token_env"`
	BasicUser      string `yaml:"basic_user"`
	BasicPass      string `yaml:"basic_pass"`
}

// IsConfigured reports whether any auth method is complete. Admin routes are
// not mounted otherwise.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
