package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// Called after instantiation and before Provision().
// The node contains the raw YAML for this module's config section.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after instantiation:
// applying defaults, opening databases, building API clients.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration
// is complete and correct. Called after Provision(). Must not have side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run background work such as an
// HTTP listener. Called after every module has been provisioned.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that hold resources.
// Called during shutdown in reverse load order.
type Stopper interface {
	Stop(ctx context.Context) error
}
