package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/flemzord/mategen/internal/core"
)

// FileName is the configuration file name looked up by ResolvePath.
const FileName = "mategen.yaml"

// Resolve returns the configured module IDs in load order: by namespace
// rank (telemetry, provider, store, gateway, tool), then by ID.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if ra, rb := core.ModuleID(a).Rank(), core.ModuleID(b).Rank(); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return ids
}

// ResolvePath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/mategen/mategen.yaml, then
// ~/.config/mategen/mategen.yaml, then ./mategen.yaml.
func ResolvePath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "mategen", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "mategen", FileName))
	}

	candidates = append(candidates, FileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("config: no configuration file found (searched: %v)", candidates)
}
