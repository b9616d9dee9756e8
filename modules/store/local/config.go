package local

import "fmt"

const defaultRootDir = "projects"

// Config holds the local store module configuration.
type Config struct {
	// Root is the directory holding one sub-directory per project.
	// Defaults to {DataDir}/projects.
	Root string `yaml:"root"`

	// FileMode is the permission of created documents. Defaults to 0600.
	FileMode uint32 `yaml:"file_mode"`
}

func (c *Config) defaults() {
	if c.FileMode == 0 {
		c.FileMode = 0o600
	}
}

func (c *Config) validate() error {
	if c.FileMode&0o600 != 0o600 {
		return fmt.Errorf("store.local: file_mode %#o must allow owner read and write", c.FileMode)
	}
	return nil
}
