// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/flemzord/mategen/internal/security"
)

// NewTestCredentialStore creates a CredentialStore pre-populated with
// the given key-value pairs. Panics if an odd number of args is provided.
func NewTestCredentialStore(kvs ...string) *security.CredentialStore {
	if len(kvs)%2 != 0 {
		panic("securitytest: NewTestCredentialStore requires even number of args (key, value pairs)")
	}
	store := security.NewCredentialStore()
	for i := 0; i < len(kvs); i += 2 {
		store.Set(kvs[i], kvs[i+1])
	}
	return store
}

// AuditRecorder captures the events of an AuditLogger. It is safe for
// concurrent use, so handlers and assistants running in other goroutines
// can log through it.
type AuditRecorder struct {
	logger *security.AuditLogger

	mu     sync.Mutex
	events []security.AuditEvent
}

// NewAuditRecorder creates a recorder whose Logger writes only to memory.
func NewAuditRecorder() *AuditRecorder {
	r := &AuditRecorder{}
	r.logger = security.NewAuditLogger(security.AuditLoggerConfig{OnEvent: r.record})
	return r
}

func (r *AuditRecorder) record(e security.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Logger returns the audit logger feeding the recorder.
func (r *AuditRecorder) Logger() *security.AuditLogger { return r.logger }

// Events returns a copy of the recorded events in log order.
func (r *AuditRecorder) Events() []security.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]security.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every recorded event in log order.
func (r *AuditRecorder) Types() []security.EventType {
	events := r.Events()
	out := make([]security.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
