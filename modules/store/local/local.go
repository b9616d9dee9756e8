// Package local implements a filesystem store.Store: a project is a
// directory and each part is a markdown file holding the appended JSON
// entries.
package local

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/store"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ store.Store       = (*Store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Module provisions a local Store and publishes it as the "store" service.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.local",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("store.local: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Root == "" {
		m.config.Root = filepath.Join(ctx.DataDir, defaultRootDir)
	}
	st, err := New(m.config.Root, os.FileMode(m.config.FileMode))
	if err != nil {
		return err
	}
	m.store = st
	ctx.RegisterService(store.ServiceName, st)

	m.logger.Info("local store provisioned", "root", m.config.Root)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	info, err := os.Stat(m.config.Root)
	if err != nil {
		return fmt.Errorf("store.local: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store.local: root %s is not a directory", m.config.Root)
	}
	return nil
}

// Store returns the provisioned store.
func (m *Module) Store() *Store {
	return m.store
}
