package drive

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultCredentialsFile = "token.json"
	defaultTimeout         = 30 * time.Second
)

// Config holds the Google Drive store module configuration.
type Config struct {
	// CredentialsFile is an authorized-user token file (client_id,
	// client_secret, refresh_token). Defaults to {DataDir}/token.json.
	CredentialsFile string `yaml:"credentials_file"`

	// RootFolderID, when set, parents every project folder.
	RootFolderID string `yaml:"root_folder_id"`

	// DriveEndpoint and DocsEndpoint override the API base URLs.
	DriveEndpoint string `yaml:"drive_endpoint"`
	DocsEndpoint  string `yaml:"docs_endpoint"`

	// Timeout bounds every API request. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.CredentialsFile == "" {
		errs = append(errs, errors.New("store.drive: credentials_file is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("store.drive: timeout must be non-negative, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}
