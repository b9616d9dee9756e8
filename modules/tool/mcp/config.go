package mcp

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const defaultTimeout = 30 * time.Second

// ServerConfig describes one MCP server. Exactly one of Command and URL is
// set: Command launches the server over stdio, URL reaches it over
// streamable HTTP.
type ServerConfig struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`

	// Prefix exposes the tools as <name>_<tool> to avoid collisions.
	Prefix bool `yaml:"prefix"`
}

// Config holds the MCP bridge configuration.
type Config struct {
	Servers []ServerConfig `yaml:"servers"`

	// Timeout bounds connection setup and each tool call. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout"`
}

var serverNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, s := range c.Servers {
		if !serverNamePattern.MatchString(s.Name) {
			errs = append(errs, fmt.Errorf("tool.mcp: servers[%d]: invalid name %q", i, s.Name))
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("tool.mcp: servers[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if (s.Command == "") == (s.URL == "") {
			errs = append(errs, fmt.Errorf("tool.mcp: servers[%d]: exactly one of command and url is required", i))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("tool.mcp: timeout must be non-negative"))
	}
	return errors.Join(errs...)
}
