package core

import (
	"fmt"
	"slices"
	"strings"
)

// Module namespaces, in load order. Telemetry installs the tracer before
// anything builds an HTTP client; providers and stores register the
// services the gateway and the tools look up.
const (
	NamespaceTelemetry = "telemetry"
	NamespaceProvider  = "provider"
	NamespaceStore     = "store"
	NamespaceGateway   = "gateway"
	NamespaceTool      = "tool"
)

var namespaces = []string{
	NamespaceTelemetry,
	NamespaceProvider,
	NamespaceStore,
	NamespaceGateway,
	NamespaceTool,
}

// Namespaces returns the known module namespaces in load order.
func Namespaces() []string { return slices.Clone(namespaces) }

// Exclusive reports whether at most one module of namespace ns may be
// configured: the assistant talks to a single model and persists to a
// single store.
func Exclusive(ns string) bool {
	return ns == NamespaceProvider || ns == NamespaceStore
}

// ModuleID is the namespaced identifier of a module (e.g. "store.sqlite").
// The part before the first dot is the namespace.
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Rank is the position of the ID's namespace in load order. Unknown
// namespaces rank last.
func (id ModuleID) Rank() int {
	if i := slices.Index(namespaces, id.Namespace()); i >= 0 {
		return i
	}
	return len(namespaces)
}

// validate checks that the ID is "<namespace>.<name>" with a known
// namespace.
func (id ModuleID) validate() error {
	ns, name, ok := strings.Cut(string(id), ".")
	if !ok || name == "" {
		return fmt.Errorf("module ID %q must be <namespace>.<name>", id)
	}
	if !slices.Contains(namespaces, ns) {
		return fmt.Errorf("module ID %q: unknown namespace %q (known: %s)", id, ns, strings.Join(namespaces, ", "))
	}
	return nil
}

// Name returns the part of the ID after the first dot, or the whole ID when
// it has no namespace.
func (id ModuleID) Name() string {
	if _, name, ok := strings.Cut(string(id), "."); ok {
		return name
	}
	return string(id)
}

// ModuleInfo describes a registered module and how to instantiate it.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is implemented by every pluggable component of mategen.
// Optional lifecycle behavior is expressed through the interfaces in
// lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
