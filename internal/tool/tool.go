// Package tool defines the tool contract, the registry the model's tool
// definitions come from, and the invoker that turns a model tool call into
// a tool-result message.
package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Tool is the interface that all mategen tools implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool
	// does. It feeds schema generation when Schema returns nil.
	Description() string

	// Schema returns the JSON Schema of the tool's parameters, or nil to
	// have the registry generate one.
	Schema() json.RawMessage

	// Execute runs the tool with decoded arguments. The returned string is
	// the tool-result content shown to the model.
	Execute(ctx context.Context, args map[string]any, env Env) (string, error)
}

// Toolset is implemented by modules that contribute tools. The assistant
// registers every tool of every loaded Toolset.
type Toolset interface {
	Tools() []Tool
}

// Env is the execution context injected into every tool call. The model
// never supplies it.
type Env struct {
	// Workdir is the directory tools read and write files in.
	Workdir string

	// Vars is the variable space shared between tool calls of one
	// conversation (tables loaded by one tool, read by another).
	Vars *Vars

	// Logger for the current tool call.
	Logger *slog.Logger
}

// Vars is a concurrency-safe named value space.
type Vars struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewVars creates an empty variable space.
func NewVars() *Vars {
	return &Vars{m: make(map[string]any)}
}

// Set stores value under name, replacing any previous value.
func (v *Vars) Set(name string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[name] = value
}

// Get returns the value stored under name.
func (v *Vars) Get(name string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[name]
	return val, ok
}

// Names returns the stored names sorted alphabetically.
func (v *Vars) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Sorted(maps.Keys(v.m))
}

// Snapshot returns a shallow copy of the whole space.
func (v *Vars) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.m)
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string

	// Parameters is the JSON Schema of the arguments; nil requests generation.
	Parameters json.RawMessage

	Fn func(ctx context.Context, args map[string]any, env Env) (string, error)
}

// Name implements Tool.
func (f *Func) Name() string { return f.ToolName }

// Description implements Tool.
func (f *Func) Description() string { return f.ToolDescription }

// Schema implements Tool.
func (f *Func) Schema() json.RawMessage { return f.Parameters }

// Execute implements Tool.
func (f *Func) Execute(ctx context.Context, args map[string]any, env Env) (string, error) {
	return f.Fn(ctx, args, env)
}

var _ Tool = (*Func)(nil)
