// Package drive implements a store.Store on Google Drive: a project is a
// Drive folder and each part is a Google Docs document the entries are
// appended to.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/security"
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

// Module provisions a Drive Store and publishes it as the "store" service.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.drive",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("store.drive: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.CredentialsFile == "" {
		m.config.CredentialsFile = filepath.Join(ctx.DataDir, defaultCredentialsFile)
	}

	var creds *security.CredentialStore
	if svc, ok := ctx.GetService(security.CredentialsServiceName); ok {
		creds, _ = svc.(*security.CredentialStore)
	}
	ts, err := LoadTokenSource(context.Background(), m.config.CredentialsFile, creds)
	if err != nil {
		return err
	}
	st, err := New(context.Background(), Options{
		TokenSource:   ts,
		DriveEndpoint: m.config.DriveEndpoint,
		DocsEndpoint:  m.config.DocsEndpoint,
		RootFolderID:  m.config.RootFolderID,
		Logger:        m.logger,
	})
	if err != nil {
		return err
	}
	m.store = st
	ctx.RegisterService(store.ServiceName, &timeoutStore{Store: st, timeout: m.config.Timeout})

	m.logger.Info("drive store provisioned", "root_folder", m.config.RootFolderID)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Store returns the provisioned store.
func (m *Module) Store() *Store {
	return m.store
}
