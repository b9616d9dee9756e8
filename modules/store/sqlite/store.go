package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/flemzord/mategen/internal/store"
)

// Store is a store.Store over SQLite. Documents are append-only: each
// Append adds one row to entries and Read concatenates them in order.
type Store struct {
	db *sql.DB
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// CreateOrGetContainer implements store.Store.
func (s *Store) CreateOrGetContainer(ctx context.Context, name string) (store.Container, error) {
	if err := store.ValidateName(name); err != nil {
		return store.Container{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO containers (id, name) VALUES (?, ?)", uuid.NewString(), name); err != nil {
		return store.Container{}, fmt.Errorf("store.sqlite: create container: %w", err)
	}

	c := store.Container{Name: name}
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM containers WHERE name = ?", name).Scan(&c.ID); err != nil {
		return store.Container{}, fmt.Errorf("store.sqlite: get container: %w", err)
	}
	return c, nil
}

// CreateOrGetDocument implements store.Store.
func (s *Store) CreateOrGetDocument(ctx context.Context, c store.Container, name string) (store.Document, error) {
	if err := store.ValidateName(name); err != nil {
		return store.Document{}, err
	}
	if err := s.exists(ctx, "containers", c.ID, c.Name); err != nil {
		return store.Document{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO documents (id, container_id, name) VALUES (?, ?, ?)",
		uuid.NewString(), c.ID, name); err != nil {
		return store.Document{}, fmt.Errorf("store.sqlite: create document: %w", err)
	}

	d := store.Document{Name: name, ContainerID: c.ID}
	if err := s.db.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE container_id = ? AND name = ?", c.ID, name).Scan(&d.ID); err != nil {
		return store.Document{}, fmt.Errorf("store.sqlite: get document: %w", err)
	}
	return d, nil
}

// Read implements store.Store.
func (s *Store) Read(ctx context.Context, d store.Document) (string, error) {
	if err := s.exists(ctx, "documents", d.ID, d.Name); err != nil {
		return "", err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT content FROM entries WHERE document_id = ? ORDER BY seq", d.ID)
	if err != nil {
		return "", fmt.Errorf("store.sqlite: read: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var b strings.Builder
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", fmt.Errorf("store.sqlite: scan entry: %w", err)
		}
		b.WriteString(content)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("store.sqlite: read: %w", err)
	}
	return b.String(), nil
}

// Append implements store.Store.
func (s *Store) Append(ctx context.Context, d store.Document, content any) error {
	data, err := store.Encode(content)
	if err != nil {
		return err
	}
	if err := s.exists(ctx, "documents", d.ID, d.Name); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (document_id, seq, content)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ? FROM entries WHERE document_id = ?`,
		d.ID, string(data), d.ID,
	)
	if err != nil {
		return fmt.Errorf("store.sqlite: append: %w", err)
	}
	return nil
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context, d store.Document) error {
	if err := s.exists(ctx, "documents", d.ID, d.Name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE document_id = ?", d.ID); err != nil {
		return fmt.Errorf("store.sqlite: clear: %w", err)
	}
	return nil
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, c store.Container) ([]store.Document, error) {
	if err := s.exists(ctx, "containers", c.ID, c.Name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM documents WHERE container_id = ? ORDER BY name", c.ID)
	if err != nil {
		return nil, fmt.Errorf("store.sqlite: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []store.Document
	for rows.Next() {
		d := store.Document{ContainerID: c.ID}
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("store.sqlite: scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Rename implements store.Store. Renaming onto an existing document fails.
func (s *Store) Rename(ctx context.Context, d store.Document, newName string) (store.Document, error) {
	if err := store.ValidateName(newName); err != nil {
		return store.Document{}, err
	}

	var taken int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE container_id = ? AND name = ? AND id != ?",
		d.ContainerID, newName, d.ID).Scan(&taken); err != nil {
		return store.Document{}, fmt.Errorf("store.sqlite: rename: %w", err)
	}
	if taken > 0 {
		return store.Document{}, fmt.Errorf("%w: %s already exists", store.ErrInvalidName, newName)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE documents SET name = ? WHERE id = ?", newName, d.ID)
	if err != nil {
		return store.Document{}, fmt.Errorf("store.sqlite: rename: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.Document{}, fmt.Errorf("%w: document %s", store.ErrNotFound, d.Name)
	}
	d.Name = newName
	return d, nil
}

// DeleteAll implements store.Store.
func (s *Store) DeleteAll(ctx context.Context, c store.Container) error {
	if err := s.exists(ctx, "containers", c.ID, c.Name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE container_id = ?", c.ID); err != nil {
		return fmt.Errorf("store.sqlite: delete all: %w", err)
	}
	return nil
}

// exists returns ErrNotFound unless table holds a row with the given id.
// table is always a package constant.
func (s *Store) exists(ctx context.Context, table, id, name string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("store.sqlite: lookup %s: %w", name, err)
	}
	return nil
}
