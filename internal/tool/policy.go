package tool

import (
	"fmt"
	"strings"

	"github.com/flemzord/mategen/internal/provider"
)

// PolicyMode defines how the model may use the registered tools.
type PolicyMode string

const (
	// PolicyAuto lets the model decide whether to call a tool.
	PolicyAuto PolicyMode = "auto"

	// PolicyNone forbids tool calls.
	PolicyNone PolicyMode = "none"

	// PolicyForce requires the model to call one named tool.
	PolicyForce PolicyMode = "force"
)

// Policy is the invocation policy sent with every model call that offers
// tools.
type Policy struct {
	Mode PolicyMode

	// Tool is the forced tool name when Mode is PolicyForce.
	Tool string
}

// String renders the policy the way ParsePolicy reads it.
func (p Policy) String() string {
	if p.Mode == PolicyForce {
		return "force:" + p.Tool
	}
	if p.Mode == "" {
		return string(PolicyAuto)
	}
	return string(p.Mode)
}

// ToolChoice converts the policy to the provider request field.
func (p Policy) ToolChoice() provider.ToolChoice {
	switch p.Mode {
	case PolicyNone:
		return provider.ToolChoiceNone
	case PolicyForce:
		return provider.ToolChoice(p.Tool)
	default:
		return provider.ToolChoiceAuto
	}
}

// ParsePolicy reads "auto", "none" or "force:<tool>". An empty string is
// "auto".
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", string(PolicyAuto):
		return Policy{Mode: PolicyAuto}, nil
	case string(PolicyNone):
		return Policy{Mode: PolicyNone}, nil
	}

	name, ok := strings.CutPrefix(s, string(PolicyForce)+":")
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Policy{}, fmt.Errorf("%w: %q has no tool name", ErrInvalidPolicy, s)
	}
	return Policy{Mode: PolicyForce, Tool: name}, nil
}
