package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/flemzord/mategen/internal/store"
)

const docExt = ".md"

// Store is a store.Store over a directory tree. Container IDs are project
// directory paths and document IDs are file paths.
type Store struct {
	root string
	mode os.FileMode

	// mu serialises appends so concurrent entries never interleave.
	mu sync.Mutex
}

// New creates root if needed and returns a Store over it.
func New(root string, mode os.FileMode) (*Store, error) {
	if mode == 0 {
		mode = 0o600
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("store.local: create root %s: %w", root, err)
	}
	return &Store{root: root, mode: mode}, nil
}

// Root returns the directory holding the projects.
func (s *Store) Root() string { return s.root }

// CreateOrGetContainer implements store.Store.
func (s *Store) CreateOrGetContainer(_ context.Context, name string) (store.Container, error) {
	if err := store.ValidateName(name); err != nil {
		return store.Container{}, err
	}
	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return store.Container{}, fmt.Errorf("store.local: create %s: %w", dir, err)
	}
	return store.Container{ID: dir, Name: name}, nil
}

// CreateOrGetDocument implements store.Store.
func (s *Store) CreateOrGetDocument(_ context.Context, c store.Container, name string) (store.Document, error) {
	if err := store.ValidateName(name); err != nil {
		return store.Document{}, err
	}
	if err := s.checkContainer(c); err != nil {
		return store.Document{}, err
	}
	path := filepath.Join(c.ID, name+docExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, s.mode)
	if err != nil {
		return store.Document{}, fmt.Errorf("store.local: create %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return store.Document{}, fmt.Errorf("store.local: create %s: %w", path, err)
	}
	return store.Document{ID: path, Name: name, ContainerID: c.ID}, nil
}

// Read implements store.Store.
func (s *Store) Read(_ context.Context, d store.Document) (string, error) {
	data, err := os.ReadFile(d.ID)
	if err != nil {
		return "", wrapNotFound(err, d.Name)
	}
	return string(data), nil
}

// Append implements store.Store.
func (s *Store) Append(_ context.Context, d store.Document, content any) error {
	data, err := store.Encode(content)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(d.ID); err != nil {
		return wrapNotFound(err, d.Name)
	}
	f, err := os.OpenFile(d.ID, os.O_APPEND|os.O_WRONLY, s.mode)
	if err != nil {
		return wrapNotFound(err, d.Name)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("store.local: append %s: %w", d.ID, err)
	}
	return f.Close()
}

// Clear implements store.Store.
func (s *Store) Clear(_ context.Context, d store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(d.ID); err != nil {
		return wrapNotFound(err, d.Name)
	}
	if err := os.Truncate(d.ID, 0); err != nil {
		return fmt.Errorf("store.local: clear %s: %w", d.ID, err)
	}
	return nil
}

// List implements store.Store.
func (s *Store) List(_ context.Context, c store.Container) ([]store.Document, error) {
	entries, err := os.ReadDir(c.ID)
	if err != nil {
		return nil, wrapNotFound(err, c.Name)
	}
	var docs []store.Document
	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != docExt {
			continue
		}
		docs = append(docs, store.Document{
			ID:          filepath.Join(c.ID, e.Name()),
			Name:        strings.TrimSuffix(e.Name(), docExt),
			ContainerID: c.ID,
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Rename implements store.Store. Renaming onto an existing document fails.
func (s *Store) Rename(_ context.Context, d store.Document, newName string) (store.Document, error) {
	if err := store.ValidateName(newName); err != nil {
		return store.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(d.ID)
	target := filepath.Join(dir, newName+filepath.Ext(d.ID))
	if _, err := os.Stat(target); err == nil {
		return store.Document{}, fmt.Errorf("%w: %s already exists", store.ErrInvalidName, newName)
	}
	if err := os.Rename(d.ID, target); err != nil {
		return store.Document{}, wrapNotFound(err, d.Name)
	}
	return store.Document{ID: target, Name: newName, ContainerID: d.ContainerID}, nil
}

// DeleteAll implements store.Store. Sub-directories are removed as well.
func (s *Store) DeleteAll(_ context.Context, c store.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(c.ID)
	if err != nil {
		return wrapNotFound(err, c.Name)
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.ID, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("store.local: delete in %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) checkContainer(c store.Container) error {
	info, err := os.Stat(c.ID)
	if err != nil {
		return wrapNotFound(err, c.Name)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: container %s is not a directory", store.ErrNotFound, c.Name)
	}
	return nil
}

func wrapNotFound(err error, name string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	return fmt.Errorf("store.local: %s: %w", name, err)
}
