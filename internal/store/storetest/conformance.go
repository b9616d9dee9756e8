// Package storetest provides a behavioral test suite every store.Store
// backend runs against itself.
package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/mategen/internal/store"
)

// Run exercises the store.Store contract. newStore must return an empty,
// independent store on every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("CreateOrGetIsIdempotent", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		c1, err := st.CreateOrGetContainer(ctx, "sales")
		if err != nil {
			t.Fatalf("CreateOrGetContainer() error = %v", err)
		}
		c2, err := st.CreateOrGetContainer(ctx, "sales")
		if err != nil {
			t.Fatalf("CreateOrGetContainer() again error = %v", err)
		}
		if c1.ID != c2.ID || c1.Name != "sales" {
			t.Errorf("containers differ: %+v vs %+v", c1, c2)
		}

		d1, err := st.CreateOrGetDocument(ctx, c1, "part1")
		if err != nil {
			t.Fatalf("CreateOrGetDocument() error = %v", err)
		}
		d2, err := st.CreateOrGetDocument(ctx, c1, "part1")
		if err != nil {
			t.Fatalf("CreateOrGetDocument() again error = %v", err)
		}
		if d1.ID != d2.ID || d1.Name != "part1" {
			t.Errorf("documents differ: %+v vs %+v", d1, d2)
		}

		text, err := st.Read(ctx, d1)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if text != "" {
			t.Errorf("new document content = %q, want empty", text)
		}
	})

	t.Run("AppendReadClear", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		d := document(t, st, "sales", "part1")

		entry := []map[string]string{{"role": "user", "content": "Combien de lignes ?"}}
		if err := st.Append(ctx, d, entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := st.Append(ctx, d, entry); err != nil {
			t.Fatalf("Append() second error = %v", err)
		}

		want, _ := store.Encode(entry)
		text, err := st.Read(ctx, d)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if text != strings.Repeat(string(want), 2) {
			t.Errorf("Read() = %q, want two encoded entries", text)
		}

		if err := st.Clear(ctx, d); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if text, _ := st.Read(ctx, d); text != "" {
			t.Errorf("Read() after Clear = %q, want empty", text)
		}
	})

	t.Run("ListAndRename", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		c, _ := st.CreateOrGetContainer(ctx, "sales")
		for _, name := range []string{"b", "a"} {
			if _, err := st.CreateOrGetDocument(ctx, c, name); err != nil {
				t.Fatalf("CreateOrGetDocument(%s) error = %v", name, err)
			}
		}

		docs, err := st.List(ctx, c)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if got := names(docs); got != "a,b" {
			t.Fatalf("List() = %s, want a,b", got)
		}

		renamed, err := st.Rename(ctx, docs[0], "z")
		if err != nil {
			t.Fatalf("Rename() error = %v", err)
		}
		if renamed.Name != "z" {
			t.Errorf("renamed.Name = %q, want z", renamed.Name)
		}
		if err := st.Append(ctx, renamed, "still writable"); err != nil {
			t.Errorf("Append() after Rename error = %v", err)
		}
		docs, _ = st.List(ctx, c)
		if got := names(docs); got != "b,z" {
			t.Errorf("List() after Rename = %s, want b,z", got)
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		c, _ := st.CreateOrGetContainer(ctx, "sales")
		other, _ := st.CreateOrGetContainer(ctx, "marketing")
		d, _ := st.CreateOrGetDocument(ctx, c, "part1")
		kept, _ := st.CreateOrGetDocument(ctx, other, "part1")

		if err := st.DeleteAll(ctx, c); err != nil {
			t.Fatalf("DeleteAll() error = %v", err)
		}
		docs, err := st.List(ctx, c)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("List() after DeleteAll = %v, want empty", docs)
		}
		if _, err := st.Read(ctx, d); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Read() deleted document error = %v, want ErrNotFound", err)
		}
		if _, err := st.Read(ctx, kept); err != nil {
			t.Errorf("Read() other container error = %v", err)
		}
	})

	t.Run("InvalidNames", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		for _, name := range []string{"", "  ", "..", "a/b"} {
			if _, err := st.CreateOrGetContainer(ctx, name); !errors.Is(err, store.ErrInvalidName) {
				t.Errorf("CreateOrGetContainer(%q) error = %v, want ErrInvalidName", name, err)
			}
		}
		c, _ := st.CreateOrGetContainer(ctx, "sales")
		if _, err := st.CreateOrGetDocument(ctx, c, "../escape"); !errors.Is(err, store.ErrInvalidName) {
			t.Errorf("CreateOrGetDocument() error = %v, want ErrInvalidName", err)
		}
	})

	t.Run("UnknownDocument", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		c, _ := st.CreateOrGetContainer(ctx, "sales")
		ghost := store.Document{ID: "missing", Name: "missing", ContainerID: c.ID}
		if _, err := st.Read(ctx, ghost); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Read() error = %v, want ErrNotFound", err)
		}
		if err := st.Append(ctx, ghost, "x"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Append() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ProjectRoundTrip", func(t *testing.T) {
		ProjectRoundTrip(t, newStore(t))
	})
}

func document(t *testing.T, st store.Store, container, name string) store.Document {
	t.Helper()
	ctx := context.Background()
	c, err := st.CreateOrGetContainer(ctx, container)
	if err != nil {
		t.Fatalf("CreateOrGetContainer() error = %v", err)
	}
	d, err := st.CreateOrGetDocument(ctx, c, name)
	if err != nil {
		t.Fatalf("CreateOrGetDocument() error = %v", err)
	}
	return d
}

func names(docs []store.Document) string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return strings.Join(out, ",")
}
