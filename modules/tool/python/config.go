package python

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/mategen/internal/security"
)

const (
	defaultInterpreter = "python3"
	defaultTimeout     = 60 * time.Second
	defaultMaxOutput   = 16 << 10
)

// Config holds the python_inter tool configuration.
type Config struct {
	// Interpreter is the Python executable. Defaults to python3.
	Interpreter string `yaml:"interpreter"`

	// Workdir is used when the call carries no workdir of its own.
	// Defaults to {DataDir}/workspace.
	Workdir string `yaml:"workdir"`

	// Timeout bounds one execution. Defaults to 60s.
	Timeout time.Duration `yaml:"timeout"`

	// MaxOutput caps the bytes of output returned to the model.
	MaxOutput int `yaml:"max_output"`

	// Sandbox runs the interpreter inside a Docker container.
	Sandbox security.SandboxConfig `yaml:"sandbox"`
}

func (c *Config) defaults() {
	if c.Interpreter == "" {
		c.Interpreter = defaultInterpreter
		if c.Sandbox.Enabled {
			c.Interpreter = "python"
		}
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxOutput == 0 {
		c.MaxOutput = defaultMaxOutput
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Workdir == "" {
		errs = append(errs, errors.New("tool.python: workdir is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("tool.python: timeout must be non-negative, got %s", c.Timeout))
	}
	if c.MaxOutput < 0 {
		errs = append(errs, fmt.Errorf("tool.python: max_output must be non-negative, got %d", c.MaxOutput))
	}
	return errors.Join(errs...)
}
