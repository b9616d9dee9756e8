package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/flemzord/mategen/internal/provider"
)

// SchemaGenerator produces a tool definition from a tool's name and
// description.
type SchemaGenerator interface {
	Generate(ctx context.Context, name, description string) (provider.ToolDefinition, error)
}

// Registry holds registered tools in registration order together with the
// invocation policy. It is instance-based (not global) for better
// testability.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	tools     map[string]Tool
	defs      map[string]provider.ToolDefinition
	policy    Policy
	generator SchemaGenerator
}

// NewRegistry creates an empty tool registry. gen may be nil when every tool
// supplies its own schema.
func NewRegistry(gen SchemaGenerator) *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		defs:      make(map[string]provider.ToolDefinition),
		policy:    Policy{Mode: PolicyAuto},
		generator: gen,
	}
}

// Register adds a tool. The definition is taken from def when non-nil, else
// built from the tool's own schema, else generated. It returns
// ErrEmptyToolName, ErrDuplicateTool, ErrMalformedSchema or
// ErrSchemaGenerationExhausted; on error the tool is not callable.
func (r *Registry) Register(ctx context.Context, t Tool, def *provider.ToolDefinition) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.RLock()
	_, exists := r.tools[name]
	gen := r.generator
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	var d provider.ToolDefinition
	switch {
	case def != nil:
		d = *def
	case len(t.Schema()) > 0:
		d = provider.ToolDefinition{Name: name, Description: t.Description(), Parameters: t.Schema()}
	case gen == nil:
		return fmt.Errorf("%w: %s", ErrNoSchemaGenerator, name)
	default:
		generated, err := gen.Generate(ctx, name, t.Description())
		if err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
		d = generated
	}
	if err := ValidateDefinition(d, name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.order = append(r.order, name)
	r.tools[name] = t
	r.defs[name] = d
	return nil
}

// ValidateDefinition checks that d names the tool want and that its
// parameters are a JSON Schema of type object.
func ValidateDefinition(d provider.ToolDefinition, want string) error {
	if d.Name != want {
		return fmt.Errorf("%w: name %q, want %q", ErrMalformedSchema, d.Name, want)
	}
	if len(d.Parameters) == 0 {
		return fmt.Errorf("%w: %s has no parameters", ErrMalformedSchema, want)
	}
	var params struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(d.Parameters, &params); err != nil {
		return fmt.Errorf("%w: %s parameters: %v", ErrMalformedSchema, want, err)
	}
	if params.Type != "object" {
		return fmt.Errorf("%w: %s parameters have type %q, want \"object\"", ErrMalformedSchema, want, params.Type)
	}
	return nil
}

// Resolve returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Definitions returns every tool definition in registration order.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Policy returns the current invocation policy.
func (r *Registry) Policy() Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// SetPolicy replaces the invocation policy. A forced tool must be
// registered.
func (r *Registry) SetPolicy(p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch p.Mode {
	case PolicyAuto, PolicyNone:
	case PolicyForce:
		if _, ok := r.tools[p.Tool]; !ok {
			return fmt.Errorf("%w: forced tool %q is not registered", ErrInvalidPolicy, p.Tool)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPolicy, p.Mode)
	}
	r.policy = p
	return nil
}
