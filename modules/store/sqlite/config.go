package sqlite

import (
	"fmt"
	"slices"
	"time"
)

const (
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "wal"
	defaultDBFile      = "transcripts.db"
)

var journalModes = []string{"wal", "delete", "truncate", "persist", "memory"}

// Config is the store.sqlite section of mategen.yaml.
type Config struct {
	// Path of the database file. Empty means {DataDir}/transcripts.db.
	Path string `yaml:"path"`
	// JournalMode is the SQLite journal_mode pragma.
	JournalMode string `yaml:"journal_mode"`
	// BusyTimeout bounds the wait on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.JournalMode == "" {
		c.JournalMode = defaultJournalMode
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("store.sqlite: busy_timeout must be non-negative, got %s", c.BusyTimeout)
	}
	if !slices.Contains(journalModes, c.JournalMode) {
		return fmt.Errorf("store.sqlite: journal_mode %q not one of %v", c.JournalMode, journalModes)
	}
	return nil
}
