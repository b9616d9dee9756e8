// Package sqlquery implements the tool.sql module: the sql_inter and
// extract_data tools over database/sql, with SQLite (modernc.org/sqlite)
// and PostgreSQL (pgx) drivers.
package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/tool"
)

// CredentialName is the credential-store name of a PostgreSQL DSN.
const CredentialName = "SQL_DSN"

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
)

// Module opens the configured database and contributes the SQL tools.
type Module struct {
	config Config
	logger *slog.Logger
	db     *sql.DB
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "tool.sql",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("tool.sql: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	if m.config.Driver == DriverSQLite && m.config.DSN == "" {
		m.config.DSN = filepath.Join(ctx.DataDir, defaultDBFile)
	}
	if m.config.DSN == "" {
		return nil
	}
	if m.config.Driver == DriverPostgres {
		if svc, ok := ctx.GetService(security.CredentialsServiceName); ok {
			if creds, ok := svc.(*security.CredentialStore); ok {
				creds.Set(CredentialName, m.config.DSN)
			}
		}
	}

	db, err := sql.Open(m.config.Driver, m.config.DSN)
	if err != nil {
		return fmt.Errorf("tool.sql: open %s: %w", m.config.Driver, err)
	}
	m.db = db
	m.logger.Info("sql tools provisioned", "driver", m.config.Driver)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Stop implements core.Stopper.
func (m *Module) Stop(context.Context) error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Tools implements tool.Toolset.
func (m *Module) Tools() []tool.Tool {
	return New(m.db, m.config.MaxRows, m.config.Timeout)
}

// New returns the sql_inter and extract_data tools bound to db.
func New(db *sql.DB, maxRows int, timeout time.Duration) []tool.Tool {
	return []tool.Tool{
		&sqlInter{db: db, maxRows: maxRows, timeout: timeout},
		&extractData{db: db, maxRows: maxRows, timeout: timeout},
	}
}
