package drive

import (
	"context"
	"time"

	"github.com/flemzord/mategen/internal/store"
)

// timeoutStore bounds every call of the wrapped store with a deadline.
type timeoutStore struct {
	store.Store
	timeout time.Duration
}

var _ store.Store = (*timeoutStore)(nil)

func (t *timeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *timeoutStore) CreateOrGetContainer(ctx context.Context, name string) (store.Container, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.CreateOrGetContainer(ctx, name)
}

func (t *timeoutStore) CreateOrGetDocument(ctx context.Context, c store.Container, name string) (store.Document, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.CreateOrGetDocument(ctx, c, name)
}

func (t *timeoutStore) Read(ctx context.Context, d store.Document) (string, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.Read(ctx, d)
}

func (t *timeoutStore) Append(ctx context.Context, d store.Document, content any) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.Append(ctx, d, content)
}

func (t *timeoutStore) Clear(ctx context.Context, d store.Document) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.Clear(ctx, d)
}

func (t *timeoutStore) List(ctx context.Context, c store.Container) ([]store.Document, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.List(ctx, c)
}

func (t *timeoutStore) Rename(ctx context.Context, d store.Document, newName string) (store.Document, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.Rename(ctx, d, newName)
}

func (t *timeoutStore) DeleteAll(ctx context.Context, c store.Container) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.Store.DeleteAll(ctx, c)
}
