// Package store defines the persistence collaborator for conversation
// transcripts: a container (folder) of named documents that content is
// appended to as indented JSON. Backends live in modules/store/*; this
// package holds the contract, an in-memory backend and the Project binding
// used by the assistant.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ServiceName is the AppContext service key store modules register under.
const ServiceName = "store"

// Sentinel errors shared by every backend.
var (
	// ErrNotFound is returned when a container or document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidName is returned for empty names or names that would escape
	// their container.
	ErrInvalidName = errors.New("store: invalid name")
)

// Container is a named folder of documents.
type Container struct {
	ID   string
	Name string
}

// Document is a named, append-only text document inside a container.
type Document struct {
	ID          string
	Name        string
	ContainerID string
}

// Store is a folder/document backend. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateOrGetContainer returns the container called name, creating it
	// when missing.
	CreateOrGetContainer(ctx context.Context, name string) (Container, error)

	// CreateOrGetDocument returns the document called name in c, creating
	// an empty one when missing.
	CreateOrGetDocument(ctx context.Context, c Container, name string) (Document, error)

	// Read returns the full text of d.
	Read(ctx context.Context, d Document) (string, error)

	// Append encodes content with Encode and appends it to d.
	Append(ctx context.Context, d Document, content any) error

	// Clear empties d.
	Clear(ctx context.Context, d Document) error

	// List returns the documents in c ordered by name.
	List(ctx context.Context, c Container) ([]Document, error)

	// Rename gives d a new name and returns the updated document.
	Rename(ctx context.Context, d Document, newName string) (Document, error)

	// DeleteAll removes every document in c. The container itself stays.
	DeleteAll(ctx context.Context, c Container) error
}

// Encode renders content as it is appended to a document: JSON indented by
// four spaces, HTML characters and non-ASCII text left as is, followed by a
// blank line.
func Encode(content any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(content); err != nil {
		return nil, fmt.Errorf("store: encode content: %w", err)
	}
	// Encoder terminates with one newline; documents separate entries by a
	// blank line.
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ValidateName rejects names that are empty or contain path elements.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case trimmed == "." || trimmed == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
