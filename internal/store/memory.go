package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a thread-safe, in-memory Store for tests and ephemeral
// sessions.
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[string]Container // name → container
	docs       map[string]*memDoc   // id → document
}

type memDoc struct {
	doc     Document
	content []byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		containers: make(map[string]Container),
		docs:       make(map[string]*memDoc),
	}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// CreateOrGetContainer implements Store.
func (s *MemoryStore) CreateOrGetContainer(_ context.Context, name string) (Container, error) {
	if err := ValidateName(name); err != nil {
		return Container{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.containers[name]; ok {
		return c, nil
	}
	c := Container{ID: uuid.NewString(), Name: name}
	s.containers[name] = c
	return c, nil
}

// CreateOrGetDocument implements Store.
func (s *MemoryStore) CreateOrGetDocument(_ context.Context, c Container, name string) (Document, error) {
	if err := ValidateName(name); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasContainer(c.ID) {
		return Document{}, fmt.Errorf("%w: container %s", ErrNotFound, c.Name)
	}
	for _, d := range s.docs {
		if d.doc.ContainerID == c.ID && d.doc.Name == name {
			return d.doc, nil
		}
	}
	d := Document{ID: uuid.NewString(), Name: name, ContainerID: c.ID}
	s.docs[d.ID] = &memDoc{doc: d}
	return d, nil
}

// Read implements Store.
func (s *MemoryStore) Read(_ context.Context, d Document) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.docs[d.ID]
	if !ok {
		return "", fmt.Errorf("%w: document %s", ErrNotFound, d.Name)
	}
	return string(md.content), nil
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, d Document, content any) error {
	data, err := Encode(content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	md, ok := s.docs[d.ID]
	if !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, d.Name)
	}
	md.content = append(md.content, data...)
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, d Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	md, ok := s.docs[d.ID]
	if !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, d.Name)
	}
	md.content = nil
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, c Container) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasContainer(c.ID) {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, c.Name)
	}
	var out []Document
	for _, d := range s.docs {
		if d.doc.ContainerID == c.ID {
			out = append(out, d.doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Rename implements Store.
func (s *MemoryStore) Rename(_ context.Context, d Document, newName string) (Document, error) {
	if err := ValidateName(newName); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	md, ok := s.docs[d.ID]
	if !ok {
		return Document{}, fmt.Errorf("%w: document %s", ErrNotFound, d.Name)
	}
	md.doc.Name = newName
	return md.doc, nil
}

// DeleteAll implements Store.
func (s *MemoryStore) DeleteAll(_ context.Context, c Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasContainer(c.ID) {
		return fmt.Errorf("%w: container %s", ErrNotFound, c.Name)
	}
	for id, d := range s.docs {
		if d.doc.ContainerID == c.ID {
			delete(s.docs, id)
		}
	}
	return nil
}

// hasContainer must be called with s.mu held.
func (s *MemoryStore) hasContainer(id string) bool {
	for _, c := range s.containers {
		if c.ID == id {
			return true
		}
	}
	return false
}
