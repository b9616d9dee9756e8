package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flemzord/mategen/internal/provider"
)

// Project binds one container (the project) and one document in it (the
// part) for transcript persistence.
type Project struct {
	Name string
	Part string

	store     Store
	container Container
	doc       Document
}

// Open creates or reopens the project container and its part document.
func Open(ctx context.Context, st Store, name, part string) (*Project, error) {
	c, err := st.CreateOrGetContainer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("opening project %s: %w", name, err)
	}
	d, err := st.CreateOrGetDocument(ctx, c, part)
	if err != nil {
		return nil, fmt.Errorf("opening part %s/%s: %w", name, part, err)
	}
	return &Project{Name: name, Part: part, store: st, container: c, doc: d}, nil
}

// Container returns the project container.
func (p *Project) Container() Container { return p.container }

// Document returns the part document.
func (p *Project) Document() Document { return p.doc }

// AppendMessages persists msgs as one JSON array entry.
func (p *Project) AppendMessages(ctx context.Context, msgs []provider.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := p.store.Append(ctx, p.doc, msgs); err != nil {
		return fmt.Errorf("appending to %s/%s: %w", p.Name, p.Part, err)
	}
	return nil
}

// Read returns the raw document text.
func (p *Project) Read(ctx context.Context) (string, error) {
	return p.store.Read(ctx, p.doc)
}

// Restore decodes every entry of the part document back into messages, in
// the order they were appended.
func (p *Project) Restore(ctx context.Context) ([]provider.Message, error) {
	text, err := p.Read(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeMessages(text)
}

// Clear empties the part document.
func (p *Project) Clear(ctx context.Context) error {
	return p.store.Clear(ctx, p.doc)
}

// Rename renames the part document.
func (p *Project) Rename(ctx context.Context, newName string) error {
	d, err := p.store.Rename(ctx, p.doc, newName)
	if err != nil {
		return fmt.Errorf("renaming %s/%s: %w", p.Name, p.Part, err)
	}
	p.doc = d
	p.Part = d.Name
	return nil
}

// DeleteAll removes every document of the project, then recreates an empty
// part document so the project stays usable.
func (p *Project) DeleteAll(ctx context.Context) error {
	if err := p.store.DeleteAll(ctx, p.container); err != nil {
		return fmt.Errorf("deleting project %s: %w", p.Name, err)
	}
	d, err := p.store.CreateOrGetDocument(ctx, p.container, p.Part)
	if err != nil {
		return err
	}
	p.doc = d
	return nil
}

// Documents lists the documents of the project.
func (p *Project) Documents(ctx context.Context) ([]Document, error) {
	return p.store.List(ctx, p.container)
}

// DecodeMessages parses a transcript made of concatenated JSON entries.
// Each entry is either an array of messages or a single message object.
func DecodeMessages(text string) ([]provider.Message, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	dec := json.NewDecoder(strings.NewReader(text))

	var out []provider.Message
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("store: decode transcript: %w", err)
		}

		if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
			var msgs []provider.Message
			if err := json.Unmarshal(raw, &msgs); err != nil {
				return nil, fmt.Errorf("store: decode transcript entry: %w", err)
			}
			out = append(out, msgs...)
			continue
		}
		var m provider.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("store: decode transcript entry: %w", err)
		}
		out = append(out, m)
	}
}
