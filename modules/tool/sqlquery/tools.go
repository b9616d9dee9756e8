package sqlquery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flemzord/mategen/internal/tool"
)

var sqlInterSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"sql_query": {"type": "string", "description": "The SQL query to run against the database"}
	},
	"required": ["sql_query"]
}`)

var extractDataSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"sql_query": {"type": "string", "description": "The SQL query selecting the data to load"},
		"df_name": {"type": "string", "description": "The variable name the loaded table is stored under"}
	},
	"required": ["sql_query", "df_name"]
}`)

// sqlInter runs a query and returns the rows as JSON.
type sqlInter struct {
	db      *sql.DB
	maxRows int
	timeout time.Duration
}

var _ tool.Tool = (*sqlInter)(nil)

func (t *sqlInter) Name() string { return "sql_inter" }

func (t *sqlInter) Description() string {
	return "Runs a SQL query against the connected database and returns the result rows as JSON. " +
		"Use it to inspect tables and answer questions about their data."
}

func (t *sqlInter) Schema() json.RawMessage { return sqlInterSchema }

func (t *sqlInter) Execute(ctx context.Context, args map[string]any, env tool.Env) (string, error) {
	q, err := tool.StringArg(args, "sql_query")
	if err != nil {
		return "", err
	}
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	rows, err := Query(ctx, t.db, q, t.maxRows)
	if err != nil {
		return "", err
	}
	if env.Logger != nil {
		env.Logger.Debug("sql query executed", "rows", len(rows))
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return string(b), nil
}

// extractData loads a query result into the shared variable space so later
// tool calls (python_inter) can work on it.
type extractData struct {
	db      *sql.DB
	maxRows int
	timeout time.Duration
}

var _ tool.Tool = (*extractData)(nil)

func (t *extractData) Name() string { return "extract_data" }

func (t *extractData) Description() string {
	return "Loads the result of a SQL query into a named variable that later python_inter calls can read. " +
		"Use it to pull a table out of the database for local analysis."
}

func (t *extractData) Schema() json.RawMessage { return extractDataSchema }

func (t *extractData) Execute(ctx context.Context, args map[string]any, env tool.Env) (string, error) {
	q, err := tool.StringArg(args, "sql_query")
	if err != nil {
		return "", err
	}
	name, err := tool.StringArg(args, "df_name")
	if err != nil {
		return "", err
	}
	if !validIdentifier(name) {
		return "", fmt.Errorf("df_name %q is not a valid identifier", name)
	}
	if env.Vars == nil {
		return "", fmt.Errorf("no variable space available")
	}
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	rows, err := Query(ctx, t.db, q, t.maxRows)
	if err != nil {
		return "", err
	}
	env.Vars.Set(name, rows)
	return fmt.Sprintf("Loaded %d rows into variable %s.", len(rows), name), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// validIdentifier reports whether s is usable as a Python variable name.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
