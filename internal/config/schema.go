package config

import (
	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/orchestrator"
)

// Config is the root configuration structure.
type Config struct {
	// Version is the configuration schema version. Only "1" is supported.
	Version string `yaml:"version"`

	// Assistant configures the conversation and the response orchestrator.
	Assistant AssistantConfig `yaml:"assistant"`

	// Audit configures the JSONL audit trail.
	Audit AuditConfig `yaml:"audit,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Decoding is deferred to each module's Configure method.
	Modules map[string]yaml.Node `yaml:"modules"`
}

// AssistantConfig configures the assistant facade.
type AssistantConfig struct {
	// Model overrides the provider's model for every call.
	Model string `yaml:"model,omitempty"`

	// System holds the system messages, one per entry.
	System []string `yaml:"system,omitempty"`

	// SystemFiles are read at startup and appended to System.
	SystemFiles []string `yaml:"system_files,omitempty"`

	// Budget is the history token budget. Zero derives it from the model
	// name; -1 disables eviction.
	Budget int `yaml:"budget,omitempty"`

	// Encoding is the tiktoken encoding used to count tokens. EncodingChars
	// estimates from the character count instead.
	Encoding string `yaml:"encoding,omitempty"`

	DeveloperMode bool `yaml:"developer_mode,omitempty"`
	EnhancedMode  bool `yaml:"enhanced_mode,omitempty"`

	Retry orchestrator.RetryPolicy `yaml:"retry,omitempty"`

	// MaxDebugDepth bounds nested debug sessions.
	MaxDebugDepth int `yaml:"max_debug_depth,omitempty"`

	// ToolPolicy is "auto", "none" or "force:<tool>".
	ToolPolicy string `yaml:"tool_policy,omitempty"`

	// Project and Part name the transcript persistence binding. An empty
	// Project disables persistence.
	Project string `yaml:"project,omitempty"`
	Part    string `yaml:"part,omitempty"`

	// Workdir is the tool working directory. Defaults to the workspace.
	Workdir string `yaml:"workdir,omitempty"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// Path is the JSONL file events are appended to. Empty disables the file.
	Path string `yaml:"path,omitempty"`
}

// Default values applied by AssistantConfig.Defaults.
const (
	DefaultEncoding = "cl100k_base"
	DefaultPart     = "main"

	// EncodingChars selects the character-based token estimate, which
	// needs no encoding download.
	EncodingChars = "chars"
)

// Defaults fills zero values with their defaults.
func (a *AssistantConfig) Defaults() {
	if a.Encoding == "" {
		a.Encoding = DefaultEncoding
	}
	if a.Project != "" && a.Part == "" {
		a.Part = DefaultPart
	}
	if a.ToolPolicy == "" {
		a.ToolPolicy = "auto"
	}
}
