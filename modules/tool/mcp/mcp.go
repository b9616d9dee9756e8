// Package mcp implements the tool.mcp module, which exposes the tools of
// Model Context Protocol servers (github.com/mark3labs/mcp-go) as mategen
// tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
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
	_ core.Stopper      = (*Module)(nil)
	_ tool.Toolset      = (*Module)(nil)
	_ Caller            = (*client.Client)(nil)
)

// Module connects to the configured MCP servers during provisioning and
// contributes their tools.
type Module struct {
	config  Config
	logger  *slog.Logger
	env     []string
	clients []*client.Client
	tools   []tool.Tool
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "tool.mcp",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("tool.mcp: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	if err := m.config.validate(); err != nil {
		return err
	}

	var creds *security.CredentialStore
	if svc, ok := ctx.GetService(security.CredentialsServiceName); ok {
		creds, _ = svc.(*security.CredentialStore)
	}
	m.env = security.SanitizedEnv(creds)

	for _, sc := range m.config.Servers {
		if err := m.connect(sc); err != nil {
			_ = m.Stop(context.Background())
			return err
		}
	}
	return nil
}

func (m *Module) connect(sc ServerConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
	defer cancel()

	c, err := m.dial(ctx, sc)
	if err != nil {
		return fmt.Errorf("tool.mcp: connect %s: %w", sc.Name, err)
	}
	m.clients = append(m.clients, c)

	ts, err := Load(ctx, c, sc.Name, sc.Prefix, m.config.Timeout)
	if err != nil {
		return err
	}
	m.tools = append(m.tools, ts...)
	m.logger.Info("mcp server connected", "server", sc.Name, "tools", len(ts))
	return nil
}

func (m *Module) dial(ctx context.Context, sc ServerConfig) (*client.Client, error) {
	if sc.Command != "" {
		env := slices.Clone(m.env)
		for _, k := range slices.Sorted(maps.Keys(sc.Env)) {
			env = append(env, k+"="+sc.Env[k])
		}
		return client.NewStdioMCPClient(sc.Command, env, sc.Args...)
	}

	c, err := client.NewStreamableHttpClient(sc.URL, transport.WithHTTPHeaders(sc.Headers))
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Tools implements tool.Toolset.
func (m *Module) Tools() []tool.Tool {
	return m.tools
}

// Stop implements core.Stopper.
func (m *Module) Stop(context.Context) error {
	var errs []error
	for _, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.clients = nil
	return errors.Join(errs...)
}
