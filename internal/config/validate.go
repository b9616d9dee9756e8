package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/store"
	"github.com/flemzord/mategen/internal/tool"
)

// Validate checks a parsed Config for structural correctness.
// It returns all validation errors joined together, not just the first.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	namespaces := make(map[string][]string)
	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
		ns := core.ModuleID(id).Namespace()
		namespaces[ns] = append(namespaces[ns], id)
	}

	if len(cfg.Modules) > 0 && len(namespaces[core.NamespaceProvider]) == 0 {
		errs = append(errs, errors.New("config: a provider module is required"))
	}
	for _, ns := range core.Namespaces() {
		if ids := namespaces[ns]; core.Exclusive(ns) && len(ids) > 1 {
			sort.Strings(ids)
			errs = append(errs, fmt.Errorf("config: at most one %s module may be configured, got %s", ns, strings.Join(ids, ", ")))
		}
	}

	errs = append(errs, validateAssistant(cfg.Assistant, len(namespaces[core.NamespaceStore]) > 0)...)

	return errors.Join(errs...)
}

func validateAssistant(a AssistantConfig, hasStore bool) []error {
	var errs []error

	if a.Budget < -1 {
		errs = append(errs, fmt.Errorf("config: assistant.budget must be >= -1, got %d", a.Budget))
	}
	if a.MaxDebugDepth < 0 {
		errs = append(errs, errors.New("config: assistant.max_debug_depth must be non-negative"))
	}
	if a.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("config: assistant.retry.max_attempts must be non-negative"))
	}
	if a.Retry.Cooldown < 0 || a.Retry.MaxCooldown < 0 {
		errs = append(errs, errors.New("config: assistant.retry cooldowns must be non-negative"))
	}
	if a.Retry.Multiplier < 0 {
		errs = append(errs, errors.New("config: assistant.retry.multiplier must be non-negative"))
	}
	if _, err := tool.ParsePolicy(a.ToolPolicy); err != nil {
		errs = append(errs, fmt.Errorf("config: assistant.tool_policy: %w", err))
	}
	for i, s := range a.System {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("config: assistant.system[%d] is empty", i))
		}
	}

	if a.Project != "" {
		if err := store.ValidateName(a.Project); err != nil {
			errs = append(errs, fmt.Errorf("config: assistant.project: %w", err))
		}
		if a.Part != "" {
			if err := store.ValidateName(a.Part); err != nil {
				errs = append(errs, fmt.Errorf("config: assistant.part: %w", err))
			}
		}
		if !hasStore {
			errs = append(errs, errors.New("config: assistant.project requires a store module"))
		}
	} else if a.Part != "" {
		errs = append(errs, errors.New("config: assistant.part requires assistant.project"))
	}

	return errs
}
