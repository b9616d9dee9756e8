// Package security provides credential management, log redaction, input
// validation, subprocess environment sanitization and sandboxed execution.
package security

import (
	"cmp"
	"slices"
	"sync"
)

// CredentialsServiceName is the AppContext service key of the process
// CredentialStore.
const CredentialsServiceName = "security.credentials"

// minSecretLen is the shortest value treated as a secret when scrubbing
// text. Shorter values ("yes", "1") would redact ordinary words.
const minSecretLen = 8

// CredentialStore holds the secrets modules load while provisioning: the
// model API key, the drive store's OAuth material, database DSNs. Values
// registered here are scrubbed from logs, audit entries, tool output and
// subprocess environments. Safe for concurrent use.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]string)}
}

// Set stores a credential under name. An empty value removes it.
func (s *CredentialStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.creds, name)
		return
	}
	s.creds[name] = value
}

// Get returns the credential value and whether it exists.
func (s *CredentialStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.creds[name]
	return v, ok
}

// Names returns the sorted credential names.
func (s *CredentialStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.creds))
	for name := range s.creds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Values returns the distinct credential values, longest first, so that a
// DSN is replaced before a password it contains.
func (s *CredentialStore) Values() []string {
	s.mu.RLock()
	values := make([]string, 0, len(s.creds))
	for _, v := range s.creds {
		values = append(values, v)
	}
	s.mu.RUnlock()

	slices.SortFunc(values, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return slices.Compact(values)
}
