package sqlquery

import (
	"errors"
	"fmt"
	"time"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

const (
	defaultMaxRows = 1000
	defaultTimeout = 30 * time.Second
	defaultDBFile  = "data.db"
)

// Config holds the SQL tool module configuration.
type Config struct {
	// Driver is "sqlite" (default) or "pgx" for PostgreSQL.
	Driver string `yaml:"driver"`

	// DSN is the data source name. For sqlite it defaults to
	// {DataDir}/data.db; pgx requires it.
	DSN string `yaml:"dsn"`

	// MaxRows caps the rows returned to the model. Defaults to 1000.
	MaxRows int `yaml:"max_rows"`

	// Timeout bounds each query. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.MaxRows == 0 {
		c.MaxRows = defaultMaxRows
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("tool.sql: unsupported driver %q", c.Driver))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("tool.sql: dsn is required"))
	}
	if c.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("tool.sql: max_rows must be non-negative, got %d", c.MaxRows))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("tool.sql: timeout must be non-negative, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}
