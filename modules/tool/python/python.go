// Package python implements the tool.python module: the python_inter tool,
// which runs Python code in a persistent workdir.
package python

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/tool"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ tool.Toolset      = (*Module)(nil)
	_ tool.Tool         = (*Interpreter)(nil)
)

// Module contributes the python_inter tool.
type Module struct {
	config Config
	logger *slog.Logger
	runner *Runner
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "tool.python",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("tool.python: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	if m.config.Workdir == "" {
		m.config.Workdir = filepath.Join(ctx.DataDir, "workspace")
	}
	if err := os.MkdirAll(m.config.Workdir, 0o700); err != nil {
		return fmt.Errorf("tool.python: create workdir: %w", err)
	}

	var creds *security.CredentialStore
	if svc, ok := ctx.GetService(security.CredentialsServiceName); ok {
		creds, _ = svc.(*security.CredentialStore)
	}

	cfg := RunnerConfig{
		Interpreter: m.config.Interpreter,
		Workdir:     m.config.Workdir,
		Timeout:     m.config.Timeout,
		MaxOutput:   m.config.MaxOutput,
		Env:         security.SanitizedEnv(creds),
	}
	if m.config.Sandbox.Enabled {
		cfg.Sandbox = security.NewSandboxExecutor(m.config.Sandbox)
	}
	m.runner = NewRunner(cfg)

	m.logger.Info("python tool provisioned",
		"workdir", m.config.Workdir,
		"sandbox", m.config.Sandbox.Enabled,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Tools implements tool.Toolset.
func (m *Module) Tools() []tool.Tool {
	return []tool.Tool{&Interpreter{Runner: m.runner}}
}

var interpreterSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"py_code": {"type": "string", "description": "The Python code to execute"}
	},
	"required": ["py_code"]
}`)

// Interpreter is the python_inter tool.
type Interpreter struct {
	Runner *Runner
}

// Name implements tool.Tool.
func (t *Interpreter) Name() string { return "python_inter" }

// Description implements tool.Tool.
func (t *Interpreter) Description() string {
	return "Runs Python code and returns what it prints, or the value of its last expression. " +
		"Variables persist between calls. Tables loaded with extract_data are available by name, " +
		"as pandas DataFrames when pandas is installed."
}

// Schema implements tool.Tool.
func (t *Interpreter) Schema() json.RawMessage { return interpreterSchema }

// Execute implements tool.Tool.
func (t *Interpreter) Execute(ctx context.Context, args map[string]any, env tool.Env) (string, error) {
	code, err := tool.StringArg(args, "py_code")
	if err != nil {
		return "", err
	}
	return t.Runner.Run(ctx, code, env)
}
